package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	// Feeds
	CodeQuoteUnavailable:     "Swap quote unavailable",
	CodeMalformedBookUpdate:  "Stale or malformed order book update",
	CodeSubscriptionRejected: "Order book subscription rejected",
	CodeFeedTerminated:       "Order book feed terminated",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Swap router errors
	CodeRouterAPIError:  "Swap router API error",
	CodeRouterNoRoutes:  "Swap router returned no routes",
	CodeInvalidQuote:    "Invalid quote data",
	CodeInvalidRouteAmt: "Invalid route amount",

	// Execution
	CodeTradeLegFailed:        "Trade leg failed",
	CodeDanglingExposure:      "Perp leg filled without offsetting swap",
	CodePositionFetchFailed:   "Failed to fetch perp position",
	CodeExecutionGatewayError: "Execution gateway error",
	CodeInvalidTradeSize:      "Invalid trade size",

	// Arbitrage evaluation errors
	CodeSpreadCalculationError: "Spread calculation error",

	// Notification errors
	CodeNotificationFailed: "Failed to deliver notification",

	// Cache errors
	CodeCacheWriteFailed: "Failed to write cache entry",

	// Circuit breaker errors
	CodeCircuitOpen: "Circuit breaker is open",
}
