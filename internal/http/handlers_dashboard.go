package http

import (
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
)

const (
	defaultRecentCount = 5
	defaultFeedCount   = 20
)

// handleDashboard computes the aggregated view from the current snapshots
// of both stores. Everything is derived on demand; there is no cached
// dashboard state to go stale.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	recentN := queryInt(r, "recent", defaultRecentCount)
	feedN := queryInt(r, "feed", defaultFeedCount)

	incomes := s.incomes.Snapshot()
	expenses := s.expenses.Snapshot()

	body := map[string]any{
		"balance":  aggregate.Balance(incomes.Items, expenses.Items).String(),
		"incomes":  kindSummary(incomes.Items, recentN),
		"expenses": kindSummary(expenses.Items, recentN),
		"feed":     transactionsJSON(aggregate.CombinedFeed(expenses.Items, incomes.Items, feedN)),
		"loading":  incomes.Loading || expenses.Loading,
	}
	writeJSON(w, http.StatusOK, body)
}

func kindSummary(items []core.Transaction, recentN int) map[string]any {
	byCategory := make([]map[string]string, 0)
	for _, ct := range aggregate.SortedByCategory(items) {
		byCategory = append(byCategory, map[string]string{
			"category": ct.Category,
			"amount":   ct.Amount.String(),
		})
	}

	series := make([]map[string]string, 0)
	for _, p := range aggregate.TimeSeries(items) {
		series = append(series, map[string]string{
			"date":   formatDate(p.Date),
			"amount": p.Amount.String(),
		})
	}

	return map[string]any{
		"total":       aggregate.Total(items).String(),
		"by_category": byCategory,
		"recent":      transactionsJSON(aggregate.Recent(items, recentN)),
		"time_series": series,
		"count":       len(items),
	}
}

func transactionsJSON(items []core.Transaction) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, t := range items {
		out = append(out, transactionJSON(t))
	}
	return out
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
