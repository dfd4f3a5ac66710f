// Package aggregate computes derived reporting views from ledger snapshots.
//
// Every function is pure and total: defined for empty input, deterministic,
// and safe on partial records (missing amounts, categories and dates follow
// the coercion rules of the core package). Results are computed on demand
// from the snapshot passed in; nothing here caches or mutates its input.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Point is one entry of a time series: the date and coerced amount of a
// single transaction. There is no same-day bucketing.
type Point struct {
	Date   time.Time
	Amount decimal.Decimal
}

// CategoryTotal pairs a category with its summed amount, used for sorted
// per-category breakdowns.
type CategoryTotal struct {
	Category string
	Amount   decimal.Decimal
}

// Total sums the coerced amounts of all items. Empty input yields zero.
func Total(items []core.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range items {
		sum = sum.Add(t.AmountOrZero())
	}
	return sum
}

// ByCategory maps each category to its summed amount. Records without a
// category count under core.DefaultCategory. The map is unordered; use
// SortedByCategory for display.
func ByCategory(items []core.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(items))
	for _, t := range items {
		cat := t.CategoryOrDefault()
		out[cat] = out[cat].Add(t.AmountOrZero())
	}
	return out
}

// SortedByCategory returns the category breakdown ordered by descending
// amount, ties broken by category name for a stable display order.
func SortedByCategory(items []core.Transaction) []CategoryTotal {
	byCat := ByCategory(items)
	out := make([]CategoryTotal, 0, len(byCat))
	for cat, amount := range byCat {
		out = append(out, CategoryTotal{Category: cat, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Recent returns the first n items. Items arrive date-descending from the
// ledger, so these are the n most recent. n larger than the collection
// returns everything; n <= 0 returns an empty slice.
func Recent(items []core.Transaction, n int) []core.Transaction {
	if n < 0 {
		n = 0
	}
	if n > len(items) {
		n = len(items)
	}
	out := make([]core.Transaction, n)
	copy(out, items[:n])
	return out
}

// TimeSeries returns one point per transaction in input order.
func TimeSeries(items []core.Transaction) []Point {
	out := make([]Point, len(items))
	for i, t := range items {
		out[i] = Point{Date: t.Date, Amount: t.AmountOrZero()}
	}
	return out
}

// CombinedFeed merges the two collections into a single date-descending
// feed truncated to n entries. Each entry keeps its Kind tag. A missing
// date sorts as the oldest possible value. Expenses come before incomes
// when dates are equal; within one kind the source order is preserved.
func CombinedFeed(expenses, incomes []core.Transaction, n int) []core.Transaction {
	merged := make([]core.Transaction, 0, len(expenses)+len(incomes))
	merged = append(merged, expenses...)
	merged = append(merged, incomes...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})
	return Recent(merged, n)
}

// Balance is the income total minus the expense total.
func Balance(incomes, expenses []core.Transaction) decimal.Decimal {
	return Total(incomes).Sub(Total(expenses))
}
