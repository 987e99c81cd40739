package logger

import "context"

// Nop discards every record. Useful in tests and for optional collaborators.
type Nop struct{}

var _ LoggerInterface = Nop{}

func (Nop) Debug(context.Context, string, ...any)       {}
func (Nop) Info(context.Context, string, ...any)        {}
func (Nop) Warn(context.Context, string, ...any)        {}
func (Nop) Error(context.Context, string, ...any)       {}
func (Nop) Debugc(context.Context, int, string, ...any) {}
func (Nop) Infoc(context.Context, int, string, ...any)  {}
func (Nop) Warnc(context.Context, int, string, ...any)  {}
func (Nop) Errorc(context.Context, int, string, ...any) {}
