//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"

	"gitlab.com/yelinaung/expense-client/internal/bot"
	"gitlab.com/yelinaung/expense-client/internal/models"
)

func main() {
	expenses := []models.Expense{
		{ID: 1, Name: "Groceries", Amount: 150.50, Category: "Food"},
		{ID: 2, Name: "Dinner", Amount: 130.50, Category: "Food"},
		{ID: 3, Name: "Train pass", Amount: 60.00, Category: "Transport"},
		{ID: 4, Name: "Cinema", Amount: 25.00, Category: "Entertainment"},
		{ID: 5, Name: "Electricity", Amount: 120.00, Category: "Utilities"},
		{ID: 6, Name: "Gift", Amount: 40.00},
	}

	chartData, err := bot.GenerateExpenseChart(expenses, "Expenses by Category")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("graph.png", chartData, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Created graph.png - Example expense breakdown chart")
}
