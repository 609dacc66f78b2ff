package alerting

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-logr/logr"

	"github.com/jordigilh/triagex/internal/config"
	"github.com/jordigilh/triagex/pkg/dedup"
	"github.com/jordigilh/triagex/pkg/domain"
)

type capturedRequest struct {
	text string
	auth string
}

func newTestServer(t *testing.T) (*httptest.Server, *[]capturedRequest, *sync.Mutex) {
	t.Helper()
	var mu sync.Mutex
	var captured []capturedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		mu.Lock()
		captured = append(captured, capturedRequest{text: body.Text, auth: r.Header.Get("Authorization")})
		mu.Unlock()

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	return server, &captured, &mu
}

func TestNotifyMasterPostsIncidentAlert(t *testing.T) {
	server, captured, mu := newTestServer(t)
	defer server.Close()

	n := New(server.URL, config.WebhookAuthConfig{}, 0.8, logr.Discard())
	n.Notify(domain.Ticket{ID: "t1", Category: domain.Technical}, dedup.Master)

	mu.Lock()
	defer mu.Unlock()
	if len(*captured) != 1 {
		t.Fatalf("len(captured) = %d, want 1", len(*captured))
	}
}

func TestNotifySuppressSendsNothing(t *testing.T) {
	server, captured, mu := newTestServer(t)
	defer server.Close()

	n := New(server.URL, config.WebhookAuthConfig{}, 0.8, logr.Discard())
	n.Notify(domain.Ticket{ID: "t1"}, dedup.Suppress)

	mu.Lock()
	defer mu.Unlock()
	if len(*captured) != 0 {
		t.Fatalf("len(captured) = %d, want 0 for Suppress", len(*captured))
	}
}

func TestNotifyNormalAboveThreshold(t *testing.T) {
	server, captured, mu := newTestServer(t)
	defer server.Close()

	n := New(server.URL, config.WebhookAuthConfig{}, 0.8, logr.Discard())
	n.Notify(domain.Ticket{ID: "t1", Urgency: 0.95, Text: "server down"}, dedup.Normal)

	mu.Lock()
	defer mu.Unlock()
	if len(*captured) != 1 {
		t.Fatalf("len(captured) = %d, want 1 for urgency above threshold", len(*captured))
	}
}

func TestNotifyNormalBelowThresholdSendsNothing(t *testing.T) {
	server, captured, mu := newTestServer(t)
	defer server.Close()

	n := New(server.URL, config.WebhookAuthConfig{}, 0.8, logr.Discard())
	n.Notify(domain.Ticket{ID: "t1", Urgency: 0.2}, dedup.Normal)

	mu.Lock()
	defer mu.Unlock()
	if len(*captured) != 0 {
		t.Fatalf("len(captured) = %d, want 0 for urgency below threshold", len(*captured))
	}
}

func TestNotifyNoWebhookURLIsNoop(t *testing.T) {
	n := New("", config.WebhookAuthConfig{}, 0.8, logr.Discard())
	// Must not panic or attempt a network call.
	n.Notify(domain.Ticket{ID: "t1", Urgency: 0.99}, dedup.Master)
}

func TestNotifyCarriesAuthHeader(t *testing.T) {
	server, captured, mu := newTestServer(t)
	defer server.Close()

	n := New(server.URL, config.WebhookAuthConfig{Type: "Bearer", Token: "secret-token"}, 0.8, logr.Discard())
	n.Notify(domain.Ticket{ID: "t1"}, dedup.Master)

	mu.Lock()
	defer mu.Unlock()
	if len(*captured) != 1 {
		t.Fatalf("len(captured) = %d, want 1", len(*captured))
	}
	if (*captured)[0].auth != "Bearer secret-token" {
		t.Errorf("Authorization header = %q, want %q", (*captured)[0].auth, "Bearer secret-token")
	}
}
