package infra

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/fd1az/perp-arbitrage-bot/business/arbitrage/domain"
	"github.com/fd1az/perp-arbitrage-bot/internal/apperror"
)

func TestTelegram_Alert(t *testing.T) {
	var gotPath string
	var got sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tg, err := NewTelegram(TelegramConfig{APIURL: server.URL, Token: "123:abc", ChatID: "-100"})
	if err != nil {
		t.Fatalf("NewTelegram() error = %v", err)
	}

	alert := domain.Alert{
		Code:    apperror.CodeDanglingExposure,
		Message: "perp leg failed",
		TradeID: "t-1",
		At:      time.Now(),
	}
	if err := tg.Alert(context.Background(), alert); err != nil {
		t.Fatalf("Alert() error = %v", err)
	}

	if gotPath != "/bot123:abc/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if got.ChatID != "-100" {
		t.Errorf("chat_id = %q, want -100", got.ChatID)
	}
	if !strings.Contains(got.Text, "DANGLING_EXPOSURE") || !strings.Contains(got.Text, "t-1") {
		t.Errorf("text = %q, want code and trade id", got.Text)
	}
}

func TestTelegram_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http_error", status: http.StatusBadRequest, body: `{"ok":false,"description":"chat not found"}`},
		{name: "not_ok", status: http.StatusOK, body: `{"ok":false,"description":"blocked"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			tg, err := NewTelegram(TelegramConfig{APIURL: server.URL, Token: "t", ChatID: "c"})
			if err != nil {
				t.Fatalf("NewTelegram() error = %v", err)
			}
			err = tg.Notify(context.Background(), "hello")
			if !apperror.IsCode(err, apperror.CodeNotificationFailed) {
				t.Errorf("error = %v, want NOTIFICATION_FAILED", err)
			}
		})
	}
}

func TestNewTelegram_RequiresCredentials(t *testing.T) {
	_, err := NewTelegram(TelegramConfig{Token: "t"})
	if !apperror.IsCode(err, apperror.CodeConfigurationError) {
		t.Errorf("error = %v, want CONFIGURATION_ERROR", err)
	}
}
