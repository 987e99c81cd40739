// Package asset provides a type-safe model for SPL token assets.
// The core uses big.Int for exact on-chain representation.
// decimal.Decimal is only used at boundaries (pricing, parsing, display).
package asset

import (
	"errors"
	"fmt"
)

// ErrInvalidMint is returned for strings that cannot be a base58 mint address.
var ErrInvalidMint = errors.New("asset: invalid mint address")

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// AssetID uniquely identifies a token by its mint address.
// This is the TRUE identity - not the symbol.
type AssetID struct {
	mint string
}

// NewMintID creates an AssetID from a base58 mint address.
func NewMintID(mint string) (AssetID, error) {
	if err := validateMint(mint); err != nil {
		return AssetID{}, err
	}
	return AssetID{mint: mint}, nil
}

// MustMintID is NewMintID for compile-time constants.
func MustMintID(mint string) AssetID {
	id, err := NewMintID(mint)
	if err != nil {
		panic(err)
	}
	return id
}

// Mint returns the mint address.
func (id AssetID) Mint() string {
	return id.mint
}

// IsZero returns true for the zero AssetID.
func (id AssetID) IsZero() bool {
	return id.mint == ""
}

// String returns a shortened representation for logs.
func (id AssetID) String() string {
	if len(id.mint) <= 10 {
		return id.mint
	}
	return fmt.Sprintf("%s..%s", id.mint[:4], id.mint[len(id.mint)-4:])
}

// Equals compares two AssetIDs for equality.
func (id AssetID) Equals(other AssetID) bool {
	return id.mint == other.mint
}

// validateMint checks the length and alphabet of a base58 public key.
func validateMint(mint string) error {
	if len(mint) < 32 || len(mint) > 44 {
		return fmt.Errorf("%w: %q has length %d", ErrInvalidMint, mint, len(mint))
	}
	for _, r := range mint {
		if !containsRune(base58Alphabet, r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidMint, mint, r)
		}
	}
	return nil
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}
