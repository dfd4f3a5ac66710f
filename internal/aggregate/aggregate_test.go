package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func tx(id, category string, amount int64, date time.Time) core.Transaction {
	return core.Transaction{
		ID:       id,
		Category: category,
		Amount:   decimal.NewFromInt(amount),
		Date:     date,
	}
}

func TestTotal(t *testing.T) {
	if got := Total(nil); !got.IsZero() {
		t.Fatalf("empty total: expected 0, got %s", got)
	}

	items := []core.Transaction{
		tx("a", "Food", 10, time.Time{}),
		tx("b", "Food", 5, time.Time{}),
		tx("c", "Transit", 7, time.Time{}),
	}
	if got := Total(items); !got.Equal(decimal.NewFromInt(22)) {
		t.Fatalf("expected 22, got %s", got)
	}
}

func TestTotalCoercesMalformedRecords(t *testing.T) {
	items := []core.Transaction{
		{ID: "a"}, // missing amount
		{ID: "b", Amount: decimal.NewFromInt(-4)}, // negative
		tx("c", "", 9, time.Time{}),
	}
	if got := Total(items); !got.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("expected 9, got %s", got)
	}
}

func TestByCategory(t *testing.T) {
	items := []core.Transaction{
		tx("a", "Food", 10, time.Time{}),
		tx("b", "Food", 5, time.Time{}),
		tx("c", "Transit", 7, time.Time{}),
	}
	got := ByCategory(items)
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(got))
	}
	if !got["Food"].Equal(decimal.NewFromInt(15)) {
		t.Errorf("Food: expected 15, got %s", got["Food"])
	}
	if !got["Transit"].Equal(decimal.NewFromInt(7)) {
		t.Errorf("Transit: expected 7, got %s", got["Transit"])
	}
}

func TestByCategorySumsMatchTotal(t *testing.T) {
	sets := [][]core.Transaction{
		nil,
		{tx("a", "Food", 10, time.Time{})},
		{
			tx("a", "Food", 10, time.Time{}),
			tx("b", "", 3, time.Time{}), // uncategorized
			{ID: "c", Amount: decimal.NewFromInt(-1)},
			tx("d", "Transit", 7, time.Time{}),
		},
	}
	for i, items := range sets {
		sum := decimal.Zero
		for _, amount := range ByCategory(items) {
			sum = sum.Add(amount)
		}
		if !sum.Equal(Total(items)) {
			t.Errorf("set %d: category sum %s != total %s", i, sum, Total(items))
		}
	}
}

func TestByCategoryUsesDefault(t *testing.T) {
	got := ByCategory([]core.Transaction{tx("a", "", 5, time.Time{})})
	if !got[core.DefaultCategory].Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected 5 under %q, got %v", core.DefaultCategory, got)
	}
}

func TestSortedByCategory(t *testing.T) {
	items := []core.Transaction{
		tx("a", "Transit", 7, time.Time{}),
		tx("b", "Food", 15, time.Time{}),
		tx("c", "Bills", 7, time.Time{}),
	}
	got := SortedByCategory(items)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Category != "Food" {
		t.Errorf("expected Food first, got %s", got[0].Category)
	}
	// Equal amounts order by name.
	if got[1].Category != "Bills" || got[2].Category != "Transit" {
		t.Errorf("tie order wrong: %s, %s", got[1].Category, got[2].Category)
	}
}

func TestRecentLength(t *testing.T) {
	items := []core.Transaction{
		tx("a", "", 1, time.Time{}),
		tx("b", "", 2, time.Time{}),
		tx("c", "", 3, time.Time{}),
	}
	for _, tc := range []struct{ n, want int }{
		{0, 0}, {1, 1}, {3, 3}, {10, 3}, {-1, 0},
	} {
		if got := Recent(items, tc.n); len(got) != tc.want {
			t.Errorf("Recent(n=%d): expected %d items, got %d", tc.n, tc.want, len(got))
		}
	}
	if got := Recent(nil, 5); len(got) != 0 {
		t.Errorf("Recent on empty: expected 0, got %d", len(got))
	}
}

func TestRecentCopiesItems(t *testing.T) {
	items := []core.Transaction{tx("a", "", 1, time.Time{}), tx("b", "", 2, time.Time{})}
	got := Recent(items, 2)
	got[0].ID = "mutated"
	if items[0].ID != "a" {
		t.Fatal("Recent returned a view into the input slice")
	}
}

func TestTimeSeries(t *testing.T) {
	d1 := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	items := []core.Transaction{
		tx("a", "", 10, d1),
		tx("b", "", 5, d2),
		{ID: "c", Amount: decimal.NewFromInt(-2), Date: d2},
	}
	got := TimeSeries(items)
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got))
	}
	if !got[0].Date.Equal(d1) || !got[0].Amount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("point 0 wrong: %+v", got[0])
	}
	if !got[2].Amount.IsZero() {
		t.Errorf("negative amount not coerced: %s", got[2].Amount)
	}
	if got := TimeSeries(nil); len(got) != 0 {
		t.Errorf("empty input: expected no points, got %d", len(got))
	}
}

func TestCombinedFeed(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
	}
	expenses := []core.Transaction{
		{ID: "e1", Kind: core.Expense, Date: day(3)},
		{ID: "e2", Kind: core.Expense, Date: day(1)},
	}
	incomes := []core.Transaction{
		{ID: "i1", Kind: core.Income, Date: day(3)},
		{ID: "i2", Kind: core.Income}, // missing date sorts oldest
	}

	got := CombinedFeed(expenses, incomes, 10)
	want := []string{"e1", "i1", "e2", "i2"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}

	if got := CombinedFeed(expenses, incomes, 2); len(got) != 2 || got[0].ID != "e1" || got[1].ID != "i1" {
		t.Errorf("truncation wrong: %+v", got)
	}
	if got := CombinedFeed(nil, nil, 5); len(got) != 0 {
		t.Errorf("empty inputs: expected empty feed, got %d", len(got))
	}
}

func TestBalance(t *testing.T) {
	incomes := []core.Transaction{tx("i", "", 1000, time.Time{})}
	expenses := []core.Transaction{tx("e", "", 300, time.Time{})}
	if got := Balance(incomes, expenses); !got.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("expected 700, got %s", got)
	}
	if got := Balance(nil, nil); !got.IsZero() {
		t.Fatalf("empty balance: expected 0, got %s", got)
	}
}
