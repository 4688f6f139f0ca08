package categorize

import (
	"fmt"
	"strings"
)

// buildPrompt renders the instruction payload for one batch of rows. The
// model is told to answer with a bare JSON array; parseOracleJSON still
// strips markdown fences in case it wraps the answer anyway.
func buildPrompt(reqs []Request) string {
	var b strings.Builder

	b.WriteString("You are categorizing bank transactions for a Dutch sole proprietor (ZZP) doing their bookkeeping.\n\n")

	b.WriteString("CATEGORIES (pick exactly one per row):\n")
	b.WriteString("- Purchases: goods and services bought for the business, inventory, subcontractors\n")
	b.WriteString("- Sales: revenue from customers and clients\n")
	b.WriteString("- Travel: public transport, fuel, parking, business trips\n")
	b.WriteString("- Office: rent, utilities, software subscriptions, phone, supplies\n")
	b.WriteString("- Other: anything that fits none of the above, including private transfers\n\n")

	b.WriteString("VAT RATES (Dutch BTW): 0, 9 or 21. Use 9 only for reduced-rate goods ")
	b.WriteString("(food, books, public transport), 0 for exempt or foreign transactions, 21 otherwise.\n\n")

	b.WriteString("RULES:\n")
	b.WriteString("1. INCOME rows may only be categorized as Sales or Other.\n")
	b.WriteString("2. EXPENSE rows are never Sales.\n")
	b.WriteString("3. Set confidence to \"high\" only when the description clearly identifies the counterparty or purpose; otherwise \"low\".\n")
	b.WriteString("4. Respond with ONLY a JSON array, no prose and no markdown fences.\n\n")

	b.WriteString("OUTPUT FORMAT, one object per input row:\n")
	b.WriteString(`[{"index": 0, "category": "Office", "vatRate": 21, "confidence": "high"}]`)
	b.WriteString("\n\nROWS (index | date | type | amount | description):\n")

	for _, r := range reqs {
		fmt.Fprintf(&b, "%d | %s | %s | %s | %s\n",
			r.Index, r.Date, r.Type, r.Amount.StringFixed(2), r.Description)
	}

	return b.String()
}
