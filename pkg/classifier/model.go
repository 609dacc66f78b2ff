package classifier

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jordigilh/triagex/pkg/domain"
	triageerrors "github.com/jordigilh/triagex/pkg/shared/errors"
)

// candidateLabels are the zero-shot labels the model variant chooses
// among; General is never offered directly — it's the confidence
// fallback, matching the keyword variant's "no clear winner" behavior.
var candidateLabels = []string{"Billing", "Technical", "Legal"}

// modelConfidenceFloor below which the model's top label is discarded in
// favor of General.
const modelConfidenceFloor = 0.25

// modelClassification is the structured response requested from the
// model: the top label plus the model's own confidence in it, so the
// confidence-floor rule can be applied client-side.
type modelClassification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ModelClassifier asks an Anthropic model to pick the closest of the three
// real labels for a ticket's text, used as the circuit breaker's primary
// path.
type ModelClassifier struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewModelClassifier builds a ModelClassifier against the given API key
// and model name.
func NewModelClassifier(apiKey, model string) *ModelClassifier {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ModelClassifier{client: &client, model: anthropic.Model(model)}
}

// Classify sends a single zero-shot classification prompt and applies the
// confidence floor.
func (m *ModelClassifier) Classify(ctx context.Context, text string) (domain.Category, error) {
	result, err := m.classify(ctx, text)
	if err != nil {
		return "", err
	}
	if result.Confidence < modelConfidenceFloor {
		return domain.General, nil
	}
	return domain.Category(result.Label), nil
}

func (m *ModelClassifier) classify(ctx context.Context, text string) (modelClassification, error) {
	prompt := "Classify the following support ticket into exactly one of: " +
		strings.Join(candidateLabels, ", ") +
		`. Respond with ONLY a JSON object of the form {"label": "...", "confidence": 0.0} ` +
		"where confidence is your certainty in [0,1] that the label is correct.\n\nTicket:\n" + text

	msg, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     m.model,
		MaxTokens: 128,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return modelClassification{}, triageerrors.NetworkError("classify ticket via model", "anthropic", err)
	}

	var out modelClassification
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		if jsonErr := json.Unmarshal([]byte(extractJSON(block.Text)), &out); jsonErr == nil {
			return out, nil
		}
	}
	return modelClassification{}, triageerrors.ParseError("model response", "JSON", nil)
}

// extractJSON trims any leading/trailing prose a model might add around
// the requested JSON object.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
