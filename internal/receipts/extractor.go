package receipts

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

// Extraction is a model-proposed transaction draft plus the raw model text
// for auditing.
type Extraction struct {
	Draft *domain.ReceiptDraft
	Raw   string
	Model string
}

// Extractor turns receipt image bytes into a transaction draft.
type Extractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (*Extraction, error)
}

// GeminiExtractor implements Extractor against the Gemini vision API.
type GeminiExtractor struct {
	model   string
	timeout time.Duration
}

// NewGeminiExtractor creates an extractor for the given model name.
func NewGeminiExtractor(model string, timeout time.Duration) *GeminiExtractor {
	return &GeminiExtractor{model: model, timeout: timeout}
}

var _ Extractor = (*GeminiExtractor)(nil)

const extractPrompt = `You are a bookkeeping assistant for a Dutch freelancer. Extract the key fields from this receipt image.

Respond with ONLY a JSON object, no prose, in exactly this shape:
{"date": "2023-03-05", "description": "<merchant name and what was bought>", "amount": 12.50, "category": "Office", "vatRate": 21}

RULES:
1. "date" is the purchase date in YYYY-MM-DD format.
2. "amount" is the total paid including VAT, as a plain number.
3. "category" is one of: Purchases, Travel, Office, Meals & Entertainment, Representation, Other.
4. "vatRate" is the VAT percentage printed on the receipt: 0, 9 or 21. Use 21 when unclear.`

// Extract implements the Extractor interface.
func (e *GeminiExtractor) Extract(ctx context.Context, data []byte, contentType string) (*Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("extract: creating genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extractPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: contentType,
						Data:     data,
					},
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("extract: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("extract: empty response from model")
	}

	draft, err := parseDraftJSON(raw)
	if err != nil {
		return nil, err
	}

	return &Extraction{Draft: draft, Raw: raw, Model: e.model}, nil
}

// parseDraftJSON parses the model's JSON object answer into a sanitized
// draft. The text is untrusted: fences are stripped, fields are coerced
// into the expense vocabulary, and a missing amount fails the extraction.
func parseDraftJSON(raw string) (*domain.ReceiptDraft, error) {
	clean := cleanModelJSON(raw)

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &fields); err != nil {
		return nil, fmt.Errorf("parseDraftJSON: unmarshal JSON: %w", err)
	}

	amount, ok := getAmountField(fields, "amount")
	if !ok {
		return nil, fmt.Errorf("parseDraftJSON: response has no usable amount")
	}

	draft := &domain.ReceiptDraft{
		Date:        getDateField(fields, "date"),
		Description: getStringField(fields, "description"),
		Amount:      amount.Abs(),
		Category:    domain.NormalizeExpenseCategory(getStringField(fields, "category")),
		VATRate:     domain.NormalizeVATRate(getIntField(fields, "vatRate")),
	}
	return draft, nil
}

// cleanModelJSON strips markdown fences and any prose around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		return s[start : end+1]
	}
	return s
}

func getStringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func getIntField(fields map[string]interface{}, key string) int {
	switch v := fields[key].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "%")); err == nil {
			return n
		}
	}
	return 0
}

// getAmountField reads a monetary field that models return either as a
// number or a string.
func getAmountField(fields map[string]interface{}, key string) (decimal.Decimal, bool) {
	switch v := fields[key].(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	return decimal.Decimal{}, false
}

// getDateField reads a YYYY-MM-DD field, falling back to today when the
// model gave none. The draft always needs a date and the user reviews it
// before anything is booked.
func getDateField(fields map[string]interface{}, key string) civil.Date {
	if v, ok := fields[key].(string); ok {
		if d, err := civil.ParseDate(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return civil.DateOf(time.Now().UTC())
}
