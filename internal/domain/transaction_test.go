package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeExpenseCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected Category
	}{
		{"Meals & Entertainment", CategoryMeals},
		{"representation", CategoryRepresentation},
		{"Office", CategoryOffice},
		{"Sales", CategoryOther},
		{"Groceries", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeExpenseCategory(tt.input); got != tt.expected {
				t.Errorf("NormalizeExpenseCategory(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Category
	}{
		{"exact match", "Office", CategoryOffice},
		{"lowercase", "travel", CategoryTravel},
		{"uppercase", "SALES", CategorySales},
		{"padded", "  Purchases  ", CategoryPurchases},
		{"unknown", "Groceries", CategoryOther},
		{"empty", "", CategoryOther},
		{"manual-entry category is not import vocabulary", "Meals & Entertainment", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeCategory(tt.input); got != tt.expected {
				t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeVATRate(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, 0},
		{9, 9},
		{21, 21},
		{19, 21},
		{-1, 21},
		{100, 21},
	}

	for _, tt := range tests {
		if got := NormalizeVATRate(tt.input); got != tt.expected {
			t.Errorf("NormalizeVATRate(%d) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizeConfidence(t *testing.T) {
	if got := NormalizeConfidence("High"); got != ConfidenceHigh {
		t.Errorf("NormalizeConfidence(High) = %q, want high", got)
	}
	if got := NormalizeConfidence("medium"); got != ConfidenceLow {
		t.Errorf("NormalizeConfidence(medium) = %q, want low", got)
	}
	if got := NormalizeConfidence(""); got != ConfidenceLow {
		t.Errorf("NormalizeConfidence(empty) = %q, want low", got)
	}
}

func TestTypeForAmount(t *testing.T) {
	if got := TypeForAmount(decimal.NewFromFloat(-12.50)); got != TypeExpense {
		t.Errorf("negative amount: got %q, want EXPENSE", got)
	}
	if got := TypeForAmount(decimal.NewFromFloat(12.50)); got != TypeIncome {
		t.Errorf("positive amount: got %q, want INCOME", got)
	}
	if got := TypeForAmount(decimal.Zero); got != TypeIncome {
		t.Errorf("zero amount: got %q, want INCOME", got)
	}
}

func TestSignedAmount(t *testing.T) {
	expense := &Transaction{Type: TypeExpense, Amount: decimal.NewFromFloat(10.00)}
	if !expense.SignedAmount().Equal(decimal.NewFromFloat(-10.00)) {
		t.Errorf("expense signed amount = %s, want -10", expense.SignedAmount())
	}
	income := &Transaction{Type: TypeIncome, Amount: decimal.NewFromFloat(10.00)}
	if !income.SignedAmount().Equal(decimal.NewFromFloat(10.00)) {
		t.Errorf("income signed amount = %s, want 10", income.SignedAmount())
	}
}
