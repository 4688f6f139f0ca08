package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType tells whether money came in or went out. It is derived
// from the sign of the parsed amount, never stored as a sign.
type TransactionType string

const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
)

// TypeForAmount derives the transaction type from a signed amount.
// Zero counts as income.
func TypeForAmount(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return TypeExpense
	}
	return TypeIncome
}

// Category of a transaction. Bank imports only ever produce the closed set
// returned by ImportCategories; manual entry and receipt approval may use
// the additional categories below.
type Category string

const (
	CategoryPurchases Category = "Purchases"
	CategorySales     Category = "Sales"
	CategoryTravel    Category = "Travel"
	CategoryOffice    Category = "Office"
	CategoryOther     Category = "Other"

	// Outside the import vocabulary, deductible at 80% for income tax.
	CategoryMeals          Category = "Meals & Entertainment"
	CategoryRepresentation Category = "Representation"
)

// ImportCategories returns the closed category set of the bank import flow.
func ImportCategories() []Category {
	return []Category{
		CategoryPurchases,
		CategorySales,
		CategoryTravel,
		CategoryOffice,
		CategoryOther,
	}
}

// NormalizeCategory coerces a free-form category string into the import
// vocabulary. Anything unrecognized becomes Other.
func NormalizeCategory(s string) Category {
	normalized := strings.TrimSpace(s)
	for _, c := range ImportCategories() {
		if strings.EqualFold(normalized, string(c)) {
			return c
		}
	}
	return CategoryOther
}

// ExpenseCategories returns the categories valid for an expense, including
// the limited-deductibility ones receipts and manual entry may use.
func ExpenseCategories() []Category {
	return []Category{
		CategoryPurchases,
		CategoryTravel,
		CategoryOffice,
		CategoryMeals,
		CategoryRepresentation,
		CategoryOther,
	}
}

// NormalizeExpenseCategory coerces a free-form category string into the
// expense vocabulary. Anything unrecognized, Sales included, becomes Other.
func NormalizeExpenseCategory(s string) Category {
	normalized := strings.TrimSpace(s)
	for _, c := range ExpenseCategories() {
		if strings.EqualFold(normalized, string(c)) {
			return c
		}
	}
	return CategoryOther
}

// LimitedDeductible reports whether the category is only partially
// deductible for income tax purposes.
func (c Category) LimitedDeductible() bool {
	return c == CategoryMeals || c == CategoryRepresentation
}

// Dutch VAT (BTW) rates. DefaultVATRate is the general rate applied when a
// rate is missing or unrecognized.
const (
	VATRateZero    = 0
	VATRateLow     = 9
	VATRateHigh    = 21
	DefaultVATRate = VATRateHigh
)

// NormalizeVATRate coerces a rate into the closed set {0, 9, 21}.
func NormalizeVATRate(rate int) int {
	switch rate {
	case VATRateZero, VATRateLow, VATRateHigh:
		return rate
	}
	return DefaultVATRate
}

// Confidence of a machine-proposed categorization.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// NormalizeConfidence coerces a free-form confidence string; anything that
// is not exactly high becomes low.
func NormalizeConfidence(s string) Confidence {
	if strings.EqualFold(strings.TrimSpace(s), string(ConfidenceHigh)) {
		return ConfidenceHigh
	}
	return ConfidenceLow
}

// VATTreatment distinguishes regular domestic VAT from reverse-charged
// (verlegde) VAT on foreign purchases.
type VATTreatment string

const (
	VATTreatmentDomestic      VATTreatment = "domestic"
	VATTreatmentReverseCharge VATTreatment = "reverse_charge"
)

// EULocation qualifies a reverse-charge supplier as EU or non-EU. The VAT
// return reports these on separate rubrics.
type EULocation string

const (
	EULocationEU    EULocation = "eu"
	EULocationNonEU EULocation = "non_eu"
)

// Transaction source values.
const (
	SourceBankImport = "bank_import"
	SourceManual     = "manual"
	SourceReceipt    = "receipt"
)

// ParsedRow is one statement line after dialect parsing: a calendar date,
// a flattened description and a signed amount (negative = money out).
type ParsedRow struct {
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Proposal is a machine-categorized statement row awaiting user review.
type Proposal struct {
	Row         ParsedRow       `json:"row"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category"`
	VATRate     int             `json:"vatRate"`
	Confidence  Confidence      `json:"confidence"`
	IsDuplicate bool            `json:"isDuplicate"`
}

// Transaction is the persisted bookkeeping unit. Amount is always the
// absolute value; Type carries the direction.
type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Date          civil.Date      `json:"date"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TransactionType `json:"type"`
	Category      Category        `json:"category"`
	VATRate       int             `json:"vatRate"`
	VATTreatment  VATTreatment    `json:"vatTreatment"`
	EULocation    EULocation      `json:"euLocation,omitempty"`
	Source        string          `json:"source"`
	AttachmentURI string          `json:"attachmentUri,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// SignedAmount reconstructs the signed amount from type and absolute value.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}
