package alert

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func telegramServer(t *testing.T, capture *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/bottest-token/sendMessage") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		*capture = append(*capture, r.FormValue("text"))
		w.WriteHeader(http.StatusOK)
	}))
}

func telegramConfig(baseURL string) TelegramConfig {
	return TelegramConfig{
		BotToken:           "test-token",
		ChatID:             "42",
		BaseURL:            baseURL,
		NotifyOpportunity:  true,
		NotifyTrade:        true,
		NotifyRisk:         true,
		NotifyDailySummary: true,
	}
}

func TestTelegramChannelSend(t *testing.T) {
	var messages []string
	srv := telegramServer(t, &messages)
	defer srv.Close()

	ch := NewTelegramChannel("telegram", telegramConfig(srv.URL))
	err := ch.Send(Alert{
		Level:     "INFO",
		Kind:      KindOpportunity,
		Message:   "价差 170 点",
		Timestamp: time.Now(),
		Fields:    map[string]interface{}{"strategy": "basis"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if !strings.Contains(messages[0], "价差 170 点") {
		t.Fatalf("message body missing text: %q", messages[0])
	}
	if !strings.Contains(messages[0], "strategy: basis") {
		t.Fatalf("message body missing field: %q", messages[0])
	}
}

func TestTelegramChannelKindToggles(t *testing.T) {
	var messages []string
	srv := telegramServer(t, &messages)
	defer srv.Close()

	cfg := telegramConfig(srv.URL)
	cfg.NotifyOpportunity = false
	ch := NewTelegramChannel("telegram", cfg)

	// 关闭的类别静默跳过
	if err := ch.Send(Alert{Kind: KindOpportunity, Message: "skip"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("disabled kind must not send, got %d messages", len(messages))
	}

	// 错误类不受开关影响
	if err := ch.Send(Alert{Kind: KindError, Message: "boom"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("error kind must always send, got %d messages", len(messages))
	}
}

func TestTelegramChannelCriticalBypassesToggle(t *testing.T) {
	var messages []string
	srv := telegramServer(t, &messages)
	defer srv.Close()

	cfg := telegramConfig(srv.URL)
	cfg.NotifyRisk = false
	ch := NewTelegramChannel("telegram", cfg)

	if err := ch.Send(Alert{Level: "WARNING", Kind: KindRiskAlert, Message: "warn"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("disabled risk kind must not send, got %d messages", len(messages))
	}

	if err := ch.Send(Alert{Level: "CRITICAL", Kind: KindRiskAlert, Message: "未对冲敞口"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("critical must bypass kind toggle, got %d messages", len(messages))
	}
}

func TestTelegramChannelServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := telegramConfig(srv.URL)
	ch := NewTelegramChannel("telegram", cfg)
	if err := ch.Send(Alert{Kind: KindError, Message: "boom"}); err == nil {
		t.Fatal("expected error for 5xx response")
	}
}
