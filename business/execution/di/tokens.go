// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/fd1az/perp-arbitrage-bot/business/execution/app"
	"github.com/fd1az/perp-arbitrage-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ExecutionService = di.NewToken[*app.ExecutionService]("execution.ExecutionService")
)

// Private dependency tokens - internal to execution module
var (
	Venue = di.NewToken[app.Venue]("execution:venue")
)

// Helper functions for type-safe access
func GetExecutionService(c di.ServiceRegistry) *app.ExecutionService {
	return di.GetToken(c, ExecutionService)
}

func GetVenue(c di.ServiceRegistry) app.Venue {
	return di.GetToken(c, Venue)
}
