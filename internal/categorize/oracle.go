package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/mjansen/boekhouding/internal/domain"
)

// Request is one row sent to the model for categorization.
type Request struct {
	Index       int
	Date        civil.Date
	Type        domain.TransactionType
	Amount      decimal.Decimal // absolute
	Description string
}

// RawResult is one element of the model's JSON answer before any
// vocabulary coercion.
type RawResult struct {
	Index      int
	Category   string
	VATRate    int
	Confidence string
}

// OracleResponse carries the parsed results plus the raw model text for
// auditing.
type OracleResponse struct {
	Results []RawResult
	Raw     string
	Model   string
}

// Oracle proposes categories for a batch of rows. The response is
// untrusted; callers sanitize every field.
type Oracle interface {
	Categorize(ctx context.Context, reqs []Request) (*OracleResponse, error)
}

// GeminiOracle implements Oracle against the Gemini API. The client picks
// up credentials from the environment (GEMINI_API_KEY or ADC).
type GeminiOracle struct {
	model   string
	timeout time.Duration
}

// NewGeminiOracle creates an oracle for the given model name. Each batch
// call gets its own timeout so one hung request cannot stall an import.
func NewGeminiOracle(model string, timeout time.Duration) *GeminiOracle {
	return &GeminiOracle{model: model, timeout: timeout}
}

var _ Oracle = (*GeminiOracle)(nil)

// Categorize implements the Oracle interface.
func (o *GeminiOracle) Categorize(ctx context.Context, reqs []Request) (*OracleResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("categorize: creating genai client: %w", err)
	}

	prompt := buildPrompt(reqs)
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, o.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("categorize: generating content: %w", err)
	}

	raw := resp.Text()
	results, err := parseOracleJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("categorize: %w", err)
	}

	return &OracleResponse{Results: results, Raw: raw, Model: o.model}, nil
}

// parseOracleJSON decodes the model's answer. Elements that are not
// objects or carry no usable index are dropped; the engine falls back for
// the rows they would have covered.
func parseOracleJSON(raw string) ([]RawResult, error) {
	cleaned := cleanModelJSON(raw)

	var items []interface{}
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("decoding model response: %w", err)
	}

	results := make([]RawResult, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		index, ok := getIntField(m, "index")
		if !ok {
			continue
		}
		rate, _ := getIntField(m, "vatRate")
		results = append(results, RawResult{
			Index:      index,
			Category:   getStringField(m, "category"),
			VATRate:    rate,
			Confidence: getStringField(m, "confidence"),
		})
	}

	return results, nil
}

// cleanModelJSON strips markdown fences and surrounding prose, keeping the
// outermost JSON array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start >= 0 && end > start {
		s = s[start : end+1]
	}

	return strings.TrimSpace(s)
}

// getStringField extracts a string value, tolerating absence.
func getStringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// getIntField extracts an integer that the model may have written as a
// JSON number or as a string.
func getIntField(m map[string]interface{}, key string) (int, bool) {
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(v, "%")))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
