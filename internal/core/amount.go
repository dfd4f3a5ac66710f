// Package core holds the transaction domain model shared by the ledger
// stores, the aggregation functions and the remote store adapters.
//
// This file contains amount parsing for data coming from loosely typed
// sources (HTTP forms, spreadsheet cells). Parsing is defensive: anything
// that is not a non-negative decimal coerces to zero rather than failing.
package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a decimal amount from a string. It accepts both dot
// (12.34) and comma (12,34) separators and an optional leading currency
// symbol. Blank, malformed or negative input yields zero.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34
//	ParseAmount("12,34") -> 12.34
//	ParseAmount("$500")  -> 500
//	ParseAmount("n/a")   -> 0
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	// Normalize decimal comma, strip thousands separators only when a
	// comma is clearly the decimal mark (single comma, no dot).
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// SortByDateDesc sorts transactions most-recent-first. The sort is stable
// so records sharing a date keep their relative order across reloads.
func SortByDateDesc(items []Transaction) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
}
