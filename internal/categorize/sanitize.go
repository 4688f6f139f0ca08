package categorize

import (
	"github.com/mjansen/boekhouding/internal/domain"
)

// outcome is the sanitized categorization for one row.
type outcome struct {
	Category   domain.Category
	VATRate    int
	Confidence domain.Confidence
}

func fallbackOutcome() outcome {
	return outcome{
		Category:   domain.CategoryOther,
		VATRate:    domain.DefaultVATRate,
		Confidence: domain.ConfidenceLow,
	}
}

func fallbackOutcomes(n int) []outcome {
	outs := make([]outcome, n)
	for i := range outs {
		outs[i] = fallbackOutcome()
	}
	return outs
}

// sanitizeResults maps raw oracle rows onto the request batch, coercing
// every field into the closed vocabularies. Rows the oracle skipped, or
// answered with an out-of-range index, keep the fallback; when an index
// appears twice the first answer wins.
func sanitizeResults(reqs []Request, raws []RawResult) []outcome {
	outs := fallbackOutcomes(len(reqs))

	seen := make(map[int]bool, len(raws))
	for _, r := range raws {
		if r.Index < 0 || r.Index >= len(reqs) || seen[r.Index] {
			continue
		}
		seen[r.Index] = true
		outs[r.Index] = sanitizeOne(reqs[r.Index].Type, r)
	}

	return outs
}

// sanitizeOne coerces a single raw result. Income can only be Sales or
// Other; an expense is never Sales.
func sanitizeOne(txType domain.TransactionType, r RawResult) outcome {
	category := domain.NormalizeCategory(r.Category)
	switch {
	case txType == domain.TypeIncome && category != domain.CategorySales && category != domain.CategoryOther:
		category = domain.CategoryOther
	case txType == domain.TypeExpense && category == domain.CategorySales:
		category = domain.CategoryOther
	}

	return outcome{
		Category:   category,
		VATRate:    domain.NormalizeVATRate(r.VATRate),
		Confidence: domain.NormalizeConfidence(r.Confidence),
	}
}
