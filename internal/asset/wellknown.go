package asset

// Well-known mint addresses on Solana mainnet.
const (
	MintWrappedSOL = "So11111111111111111111111111111111111111112"
	MintUSDC       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	MintUSDT       = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	MintMSOL       = "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So"
)

// Well-known Assets (pre-created instances)
var (
	SOL  = NewAssetWithName(MustMintID(MintWrappedSOL), "SOL", "Wrapped SOL", 9)
	USDC = NewAssetWithName(MustMintID(MintUSDC), "USDC", "USD Coin", 6)
	USDT = NewAssetWithName(MustMintID(MintUSDT), "USDT", "Tether USD", 6)
	MSOL = NewAssetWithName(MustMintID(MintMSOL), "mSOL", "Marinade staked SOL", 9)
)

// DefaultRegistry returns a registry pre-populated with well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(SOL)
	r.Register(USDC)
	r.Register(USDT)
	r.Register(MSOL)

	return r
}

// NewToken creates a token asset from a mint string.
func NewToken(mint, symbol string, decimals uint8) (*Asset, error) {
	id, err := NewMintID(mint)
	if err != nil {
		return nil, err
	}
	return NewAsset(id, symbol, decimals), nil
}
