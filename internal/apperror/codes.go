package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Arbitrage-specific error codes
const (
	// Feeds
	CodeQuoteUnavailable     Code = "QUOTE_UNAVAILABLE"
	CodeMalformedBookUpdate  Code = "MALFORMED_BOOK_UPDATE"
	CodeSubscriptionRejected Code = "SUBSCRIPTION_REJECTED"
	CodeFeedTerminated       Code = "FEED_TERMINATED"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	// Swap router errors
	CodeRouterAPIError  Code = "ROUTER_API_ERROR"
	CodeRouterNoRoutes  Code = "ROUTER_NO_ROUTES"
	CodeInvalidQuote    Code = "INVALID_QUOTE"
	CodeInvalidRouteAmt Code = "INVALID_ROUTE_AMOUNT"

	// Execution
	CodeTradeLegFailed        Code = "TRADE_LEG_FAILED"
	CodeDanglingExposure      Code = "DANGLING_EXPOSURE"
	CodePositionFetchFailed   Code = "POSITION_FETCH_FAILED"
	CodeExecutionGatewayError Code = "EXECUTION_GATEWAY_ERROR"
	CodeInvalidTradeSize      Code = "INVALID_TRADE_SIZE"

	// Arbitrage evaluation errors
	CodeSpreadCalculationError Code = "SPREAD_CALCULATION_ERROR"

	// Notification errors
	CodeNotificationFailed Code = "NOTIFICATION_FAILED"

	// Cache errors
	CodeCacheWriteFailed Code = "CACHE_WRITE_FAILED"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
