package domain

// BookMessageKind distinguishes full checkpoints from one-sided deltas.
type BookMessageKind int

const (
	BookCheckpoint BookMessageKind = iota + 1
	BookDelta
	BookAck
)

func (k BookMessageKind) String() string {
	switch k {
	case BookCheckpoint:
		return "checkpoint"
	case BookDelta:
		return "delta"
	case BookAck:
		return "ack"
	default:
		return "unknown"
	}
}

// BookMessage is a decoded order book feed message.
// Checkpoints fill Bids and Asks; deltas fill Side and Levels; acks answer a
// subscribe request and fill Accepted and Reason.
type BookMessage struct {
	Kind         BookMessageKind
	Market       string
	Slot         uint64
	WriteVersion uint64

	Bids []Level
	Asks []Level

	Side   BookSide
	Levels []Level

	Accepted bool
	Reason   string
}

// Sides returns the levels carried for each side touched by the message.
func (m BookMessage) Sides() map[BookSide][]Level {
	switch m.Kind {
	case BookCheckpoint:
		return map[BookSide][]Level{BookSideBid: m.Bids, BookSideAsk: m.Asks}
	case BookDelta:
		return map[BookSide][]Level{m.Side: m.Levels}
	default:
		return nil
	}
}
