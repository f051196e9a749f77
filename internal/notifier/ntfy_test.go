package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/good-yellow-bee/docklog/internal/models"
)

func testRecord() models.Record {
	return models.Record{
		Source:    "Syslog",
		Severity:  models.SeverityError,
		Text:      "ERROR: disk full",
		Timestamp: time.Date(2025, 2, 25, 18, 54, 47, 0, time.UTC),
	}
}

func TestNtfyConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  NtfyConfig
		wantErr bool
	}{
		{"https ok", NtfyConfig{URL: "https://ntfy.sh/topic"}, false},
		{"http rejected", NtfyConfig{URL: "http://ntfy.internal/topic"}, true},
		{"http allowed with override", NtfyConfig{URL: "http://ntfy.internal/topic", AllowInsecure: true}, false},
		{"empty url", NtfyConfig{}, true},
		{"not a url", NtfyConfig{URL: "ntfy.sh/topic"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNtfySend(t *testing.T) {
	var gotTitle, gotTags, gotAuth string
	var gotPayload ntfyPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := NewNtfyNotifier(NtfyConfig{
		URL:           srv.URL,
		AuthToken:     "secret-token",
		TitlePrefix:   "docklog-forwarder",
		AllowInsecure: true,
		AppName:       "docklog-forwarder",
	})
	if err != nil {
		t.Fatalf("NewNtfyNotifier: %v", err)
	}

	if err := n.Send(context.Background(), testRecord()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotTitle != "docklog-forwarder ERROR [Syslog]" {
		t.Errorf("Title = %q", gotTitle)
	}
	if gotTags != "error" {
		t.Errorf("Tags = %q, want %q", gotTags, "error")
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPayload.Source != "Syslog" || gotPayload.Level != "ERROR" || gotPayload.Message != "ERROR: disk full" {
		t.Errorf("payload = %+v", gotPayload)
	}
}

func TestNtfySendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not found", http.StatusNotFound)
	}))
	defer srv.Close()

	n, err := NewNtfyNotifier(NtfyConfig{URL: srv.URL, AllowInsecure: true})
	if err != nil {
		t.Fatalf("NewNtfyNotifier: %v", err)
	}

	if err := n.Send(context.Background(), testRecord()); err == nil {
		t.Error("expected error for non-2xx response")
	}
}
