package gateway

import (
	"strconv"

	"github.com/fd1az/perp-arbitrage-bot/business/execution/domain"
)

// perpOrderRequest is the body of POST /perp/orders.
type perpOrderRequest struct {
	Market        string `json:"market"`
	Side          string `json:"side"`
	SizeLots      int64  `json:"sizeLots"`
	MaxQuoteLots  int64  `json:"maxQuoteLots"`
	ClientOrderID uint64 `json:"clientOrderId"`
	OrderType     string `json:"orderType"`
}

func newPerpOrderRequest(o domain.PerpOrder) perpOrderRequest {
	orderType := o.OrderType
	if orderType == "" {
		orderType = domain.OrderTypeMarket
	}
	return perpOrderRequest{
		Market:        o.Market,
		Side:          string(o.Side),
		SizeLots:      o.SizeLots,
		MaxQuoteLots:  o.MaxQuoteLots,
		ClientOrderID: o.ClientOrderID,
		OrderType:     string(orderType),
	}
}

// swapRequest is the body of POST /swaps. Amounts travel as strings so
// u64 values survive JSON number handling on the other side.
type swapRequest struct {
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	Amount      string `json:"amount"`
	SlippageBps int    `json:"slippageBps"`
	SwapMode    string `json:"swapMode"`
}

func newSwapRequest(r domain.SwapRequest) swapRequest {
	return swapRequest{
		InputMint:   r.InputMint,
		OutputMint:  r.OutputMint,
		Amount:      strconv.FormatUint(r.NativeAmount, 10),
		SlippageBps: r.SlippageBps,
		SwapMode:    r.Mode(),
	}
}

// signatureResponse is returned by both order endpoints.
type signatureResponse struct {
	Signature string `json:"signature"`
}

// positionResponse is returned by GET /positions/{market}.
type positionResponse struct {
	Market         string `json:"market"`
	BasePositionUI string `json:"basePositionUi"`
}

// apiError represents an error response from the gateway.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
