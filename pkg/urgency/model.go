package urgency

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	triageerrors "github.com/jordigilh/triagex/pkg/shared/errors"
)

// polarity is the three-way sentiment label the model reports.
type polarity string

const (
	positive polarity = "positive"
	negative polarity = "negative"
	neutral  polarity = "neutral"
)

// neutralCoefficient weights a neutral-sentiment confidence down to a
// moderate urgency contribution rather than treating it as a full
// positive or negative signal.
const neutralCoefficient = 0.5

type sentimentResult struct {
	Polarity   polarity `json:"polarity"`
	Confidence float64  `json:"confidence"`
}

// ModelScorer asks an Anthropic model for the sentiment of a ticket's text
// and maps it to an urgency score: negative sentiment means high urgency,
// positive sentiment means low urgency, neutral sits in the middle.
type ModelScorer struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewModelScorer builds a ModelScorer against the given API key and model
// name.
func NewModelScorer(apiKey, model string) *ModelScorer {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ModelScorer{client: &client, model: anthropic.Model(model)}
}

// Score sends a single sentiment-analysis prompt and maps the result to
// an urgency score: negative sentiment maps directly to its confidence,
// positive sentiment maps to its inverse, and neutral is damped by
// neutralCoefficient.
func (m *ModelScorer) Score(ctx context.Context, text string) (float64, error) {
	result, err := m.sentiment(ctx, text)
	if err != nil {
		return 0, err
	}

	switch result.Polarity {
	case positive:
		return 1 - result.Confidence, nil
	case negative:
		return result.Confidence, nil
	default: // neutral, or anything unrecognized
		return neutralCoefficient * result.Confidence, nil
	}
}

func (m *ModelScorer) sentiment(ctx context.Context, text string) (sentimentResult, error) {
	prompt := `Classify the sentiment of the following support ticket as exactly one of: ` +
		`positive, negative, neutral. Respond with ONLY a JSON object of the form ` +
		`{"polarity": "...", "confidence": 0.0} where confidence is your certainty in [0,1].` +
		"\n\nTicket:\n" + text

	msg, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     m.model,
		MaxTokens: 128,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return sentimentResult{}, triageerrors.NetworkError("score ticket sentiment via model", "anthropic", err)
	}

	var out sentimentResult
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		if jsonErr := json.Unmarshal([]byte(extractJSON(block.Text)), &out); jsonErr == nil {
			return out, nil
		}
	}
	return sentimentResult{}, triageerrors.ParseError("model sentiment response", "JSON", nil)
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
