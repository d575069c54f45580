package bot

import (
	"errors"
	"fmt"

	"github.com/go-analyze/charts"
	"gitlab.com/yelinaung/expense-client/internal/models"
)

var errNoExpenses = errors.New("no expenses to chart")

// GenerateExpenseChart creates a pie chart of spending by category.
// Returns PNG image as bytes.
func GenerateExpenseChart(expenses []models.Expense, title string) ([]byte, error) {
	if len(expenses) == 0 {
		return nil, errNoExpenses
	}

	categoryNames, totals := models.TotalsByCategory(expenses)

	values := make([]float64, 0, len(categoryNames))
	for _, name := range categoryNames {
		values = append(values, totals[name].InexactFloat64())
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: title,
		}),
		charts.LegendLabelsOptionFunc(categoryNames),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}
