package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewUsesDefaults(t *testing.T) {
	err := New(CodeDanglingExposure, WithContext("SOL-PERP"))

	if err.Message != messages[CodeDanglingExposure] {
		t.Errorf("message = %q", err.Message)
	}
	if err.Severity != SeverityCritical {
		t.Errorf("severity = %s, want critical", err.Severity)
	}
	if !IsCritical(err) {
		t.Error("expected IsCritical")
	}
}

func TestDefaultSeverity(t *testing.T) {
	tests := []struct {
		code Code
		want Severity
	}{
		{CodeSubscriptionRejected, SeverityCritical},
		{CodeTradeLegFailed, SeverityHigh},
		{CodeMalformedBookUpdate, SeverityLow},
		{CodeInvalidQuote, SeverityLow},
		{CodeQuoteUnavailable, SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := getDefaultSeverity(tt.code); got != tt.want {
				t.Errorf("severity = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	cause := errors.New("router timeout")
	err := fmt.Errorf("poll: %w", New(CodeQuoteUnavailable, WithCause(cause)))

	if !errors.Is(err, New(CodeQuoteUnavailable)) {
		t.Error("expected errors.Is to match by code")
	}
	if errors.Is(err, New(CodeTradeLegFailed)) {
		t.Error("unexpected match on different code")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if GetCode(err) != CodeQuoteUnavailable {
		t.Errorf("GetCode = %s", GetCode(err))
	}
	if !IsCode(err, CodeQuoteUnavailable) {
		t.Error("expected IsCode")
	}
}

func TestWrapKeepsExistingAppError(t *testing.T) {
	orig := New(CodeTradeLegFailed)
	wrapped := Wrap(orig, CodeInternalError, "swap leg")

	if wrapped != orig {
		t.Fatal("expected same instance")
	}
	if wrapped.Context != "swap leg" {
		t.Errorf("context = %q", wrapped.Context)
	}

	if Wrap(nil, CodeInternalError, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}

	plain := Wrap(errors.New("eof"), CodeWebSocketClosed, "feed")
	if plain.Code != CodeWebSocketClosed {
		t.Errorf("code = %s", plain.Code)
	}
}

func TestLogArgs(t *testing.T) {
	args := LogArgs(New(CodePositionFetchFailed, WithCause(errors.New("boom"))))
	got := map[any]any{}
	for i := 0; i+1 < len(args); i += 2 {
		got[args[i]] = args[i+1]
	}
	if got["code"] != string(CodePositionFetchFailed) {
		t.Errorf("code = %v", got["code"])
	}
	if got["cause"] != "boom" {
		t.Errorf("cause = %v", got["cause"])
	}

	plain := LogArgs(errors.New("x"))
	if len(plain) != 2 || plain[1] != "x" {
		t.Errorf("plain = %v", plain)
	}
}
