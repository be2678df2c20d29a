// Package report formats the open day for sharing.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/pbaille/nutriai/internal/domain"
)

// ExportText renders entries and their totals against targets as plain text
func ExportText(entries []domain.FoodEntry, targets domain.Targets) string {
	total := domain.Sum(entries)

	var sb strings.Builder
	sb.WriteString("=== NUTRIAI LOG ===\n")
	fmt.Fprintf(&sb, "Calories: %d / %d\n", total.Calories, targets.Calories)
	fmt.Fprintf(&sb, "Protein: %dg / %dg\n", total.Protein, targets.Protein)
	fmt.Fprintf(&sb, "Fat: %dg / %dg\n", total.Fat, targets.Fat)
	fmt.Fprintf(&sb, "Carbs: %dg / %dg\n", total.Carb, targets.Carb)
	sb.WriteString("\nFoods:\n")

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("• %s %sg → %dkcal", e.Name, FormatGrams(e.Grams), e.Calories)
	}
	sb.WriteString(strings.Join(lines, "\n"))

	return sb.String()
}

// FormatGrams prints grams in fixed-point notation with at least one
// decimal place (50 -> "50.0", 0.00001 -> "0.00001"). Exponent notation is
// never used.
func FormatGrams(g float64) string {
	s := strconv.FormatFloat(g, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// CopyToClipboard places text on the system clipboard
func CopyToClipboard(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard not available on this system")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
