package domain

import (
	"fmt"
	"time"

	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
)

// Alert is an operator-visible event that needs a human.
type Alert struct {
	Code    apperror.Code
	Message string
	TradeID string
	At      time.Time
}

// NewAlert builds an alert from an error.
func NewAlert(err error, tradeID string, at time.Time) Alert {
	return Alert{
		Code:    apperror.GetCode(err),
		Message: err.Error(),
		TradeID: tradeID,
		At:      at,
	}
}

// Text renders the alert for chat or terminal output.
func (a Alert) Text() string {
	if a.TradeID == "" {
		return fmt.Sprintf("[%s] %s", a.Code, a.Message)
	}
	return fmt.Sprintf("[%s] trade %s: %s", a.Code, a.TradeID, a.Message)
}
