package domain

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Errors returned when a book update cannot be applied.
var (
	ErrNonPositivePrice = errors.New("pricing: non-positive price level")
	ErrNegativeQuantity = errors.New("pricing: negative quantity")
)

// BookSide identifies one side of the order book.
type BookSide string

const (
	BookSideBid BookSide = "bid"
	BookSideAsk BookSide = "ask"
)

// Level is a single price level. A zero quantity removes the level.
type Level struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderBook is a price-level ladder for one perp market.
// Bids are kept descending and asks ascending, so index 0 is always best.
// No two levels on a side share a price and every stored price is positive.
type OrderBook struct {
	Bids []Level
	Asks []Level
}

// NewOrderBook creates an empty book.
func NewOrderBook() *OrderBook {
	return &OrderBook{}
}

// Apply upserts or removes one level. Invalid levels leave the book unchanged;
// a non-positive price is rejected even when the level is a removal.
func (b *OrderBook) Apply(side BookSide, lvl Level) error {
	if !lvl.Price.IsPositive() {
		return fmt.Errorf("%w: %s %s", ErrNonPositivePrice, side, lvl.Price)
	}
	if lvl.Quantity.IsNegative() {
		return fmt.Errorf("%w: %s@%s", ErrNegativeQuantity, lvl.Quantity, lvl.Price)
	}
	if lvl.Quantity.IsZero() {
		b.remove(side, lvl.Price)
		return nil
	}

	levels := b.levels(side)
	i := b.search(side, lvl.Price)
	if i < len(*levels) && (*levels)[i].Price.Equal(lvl.Price) {
		(*levels)[i].Quantity = lvl.Quantity
		return nil
	}

	*levels = append(*levels, Level{})
	copy((*levels)[i+1:], (*levels)[i:])
	(*levels)[i] = lvl
	return nil
}

// Best returns the best level on side, if any.
func (b *OrderBook) Best(side BookSide) (Level, bool) {
	levels := *b.levels(side)
	if len(levels) == 0 {
		return Level{}, false
	}
	return levels[0], true
}

// Depth returns the number of levels on side.
func (b *OrderBook) Depth(side BookSide) int {
	return len(*b.levels(side))
}

// MidPrice returns the mid-market price, or zero if either side is empty.
func (b *OrderBook) MidPrice() decimal.Decimal {
	bid, okBid := b.Best(BookSideBid)
	ask, okAsk := b.Best(BookSideAsk)
	if !okBid || !okAsk {
		return decimal.Zero
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2))
}

func (b *OrderBook) remove(side BookSide, price decimal.Decimal) {
	levels := b.levels(side)
	i := b.search(side, price)
	if i < len(*levels) && (*levels)[i].Price.Equal(price) {
		*levels = append((*levels)[:i], (*levels)[i+1:]...)
	}
}

// search returns the index where price sits or would be inserted.
func (b *OrderBook) search(side BookSide, price decimal.Decimal) int {
	levels := *b.levels(side)
	if side == BookSideBid {
		return sort.Search(len(levels), func(i int) bool {
			return levels[i].Price.LessThanOrEqual(price)
		})
	}
	return sort.Search(len(levels), func(i int) bool {
		return levels[i].Price.GreaterThanOrEqual(price)
	})
}

func (b *OrderBook) levels(side BookSide) *[]Level {
	if side == BookSideBid {
		return &b.Bids
	}
	return &b.Asks
}
