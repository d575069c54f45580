// Package models defines the domain entities exchanged with the expense API.
package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Credentials are the username and password submitted to /login or /register.
// They only live in form state and request bodies.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is the success payload of /login and /register.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
}

// UncategorizedName labels expenses with an empty category in totals.
const UncategorizedName = "Uncategorized"

// Expense represents a single expense record as returned by the API.
type Expense struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
}

// ExpenseInput is the request body for creating or updating an expense.
type ExpenseInput struct {
	Name     string
	Amount   float64
	Category string
}

// MarshalJSON encodes the input the way a browser would: a non-finite amount
// becomes null instead of failing the whole request.
func (in ExpenseInput) MarshalJSON() ([]byte, error) {
	wire := struct {
		Name     string   `json:"name"`
		Amount   *float64 `json:"amount"`
		Category string   `json:"category"`
	}{
		Name:     in.Name,
		Category: in.Category,
	}
	if !math.IsNaN(in.Amount) && !math.IsInf(in.Amount, 0) {
		amount := in.Amount
		wire.Amount = &amount
	}
	return json.Marshal(wire)
}

// AmountDecimal returns the expense amount as a decimal.
// Non-finite amounts are treated as zero.
func (e Expense) AmountDecimal() decimal.Decimal {
	return toDecimal(e.Amount)
}

// FormattedAmount renders the amount with a dollar sign and two decimals.
func (e Expense) FormattedAmount() string {
	return FormatMoney(e.AmountDecimal())
}

// FormAmount renders the amount the way it is shown in an edit form: the
// shortest string that reads back as the same number, in exponent form
// below 1e-6 and from 1e21 up, with "Infinity" and "NaN" for non-finite values.
func (e Expense) FormAmount() string {
	f := e.Amount
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		// strconv pads the exponent to two digits: 1e-07.
		mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
		return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Total sums the amounts of all expenses using decimal arithmetic.
func Total(expenses []Expense) decimal.Decimal {
	total := decimal.Zero
	for i := range expenses {
		total = total.Add(expenses[i].AmountDecimal())
	}
	return total
}

// TotalsByCategory groups expenses by category and returns the per-category
// totals alongside the category names in first-seen order.
func TotalsByCategory(expenses []Expense) ([]string, map[string]decimal.Decimal) {
	var order []string
	totals := make(map[string]decimal.Decimal)

	for i := range expenses {
		category := expenses[i].Category
		if category == "" {
			category = UncategorizedName
		}
		if existing, ok := totals[category]; ok {
			totals[category] = existing.Add(expenses[i].AmountDecimal())
			continue
		}
		order = append(order, category)
		totals[category] = expenses[i].AmountDecimal()
	}

	return order, totals
}

// FormatMoney renders a decimal as "$12.34".
func FormatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func toDecimal(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
