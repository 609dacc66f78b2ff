// Package alerting dispatches best-effort Slack notifications for
// high-urgency tickets and ticket storms. A webhook failure is logged
// and otherwise ignored — alerting never blocks or fails ticket
// processing.
package alerting

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/slack-go/slack"

	"github.com/jordigilh/triagex/internal/config"
	"github.com/jordigilh/triagex/pkg/dedup"
	"github.com/jordigilh/triagex/pkg/domain"
	triagehttp "github.com/jordigilh/triagex/pkg/shared/http"
)

// Notifier posts ticket alerts to a Slack incoming webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	threshold  float64
	log        logr.Logger
}

// New builds a Notifier. An empty webhookURL makes every call a no-op,
// so alerting can be wired in unconditionally and simply does nothing
// when no webhook is configured. When auth.Token is set, every outbound
// request carries it as an Authorization header, for deployments that
// front the Slack webhook URL with a gateway requiring its own auth.
func New(webhookURL string, auth config.WebhookAuthConfig, threshold float64, log logr.Logger) *Notifier {
	client := triagehttp.NewClient(triagehttp.SlackClientConfig())
	if auth.Token != "" {
		client = &http.Client{
			Timeout:   client.Timeout,
			Transport: &authRoundTripper{base: client.Transport, authType: auth.Type, token: auth.Token},
		}
	}
	return &Notifier{webhookURL: webhookURL, client: client, threshold: threshold, log: log}
}

// authRoundTripper adds an Authorization header to every request, for
// webhook gateways that require one.
type authRoundTripper struct {
	base     http.RoundTripper
	authType string
	token    string
}

func (rt *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	scheme := rt.authType
	if scheme == "" {
		scheme = "Bearer"
	}
	req.Header.Set("Authorization", scheme+" "+rt.token)
	base := rt.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// Notify inspects a processed ticket and its storm verdict, and posts the
// appropriate Slack message: a storm incident for a Master verdict, an
// individual high-urgency alert for a Normal verdict above the configured
// threshold, or nothing for Suppress (the storm's incident alert already
// covers it) or a sub-threshold Normal ticket.
func (n *Notifier) Notify(ticket domain.Ticket, verdict dedup.Verdict) {
	switch verdict {
	case dedup.Master:
		n.post(fmt.Sprintf(
			":rotating_light: Ticket storm detected — cluster triggered by ticket `%s` (category: %s).",
			ticket.ID, ticket.Category,
		))
	case dedup.Suppress:
		// Already alerted as part of the storm; stay quiet.
	case dedup.Normal:
		if ticket.Urgency > n.threshold {
			n.post(fmt.Sprintf(
				":warning: High-urgency ticket `%s` (category: %s, urgency: %.2f): %s",
				ticket.ID, ticket.Category, ticket.Urgency, preview(ticket.Text),
			))
		}
	}
}

func (n *Notifier) post(text string) {
	if n.webhookURL == "" {
		return
	}

	msg := &slack.WebhookMessage{Text: text}
	if err := slack.PostWebhookCustomHTTPContext(context.Background(), n.webhookURL, n.client, msg); err != nil {
		n.log.Info("alert webhook delivery failed", "error", err.Error())
	}
}

func preview(text string) string {
	runes := []rune(text)
	const maxLen = 120
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen]) + "..."
}
