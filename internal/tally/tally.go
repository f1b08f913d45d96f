// Package tally implements the daily tally rules: reconciling a stored tally
// against the catalog, applying incoming counts, and deriving the day report.
// Everything here is pure; persistence is the caller's concern.
package tally

import (
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/teashop/internal/catalog"
	"github.com/atinyakov/teashop/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNegativeCount is returned when an incoming count is below zero.
var ErrNegativeCount = errors.New("count must not be negative")

// IsStale reports whether stored cannot be used as the tally for today.
func IsStale(stored *models.DailyTally, today string) bool {
	return stored == nil || stored.Date != today
}

// Reconcile returns the tally for today with exactly one entry per catalog
// category, in catalog order. A stale tally is rebuilt with zero counts. For a
// current tally, counts are kept for ids still in the catalog and their name
// and price are refreshed; ids no longer in the catalog are dropped together
// with their counts. stored is never modified.
func Reconcile(stored *models.DailyTally, cat catalog.Catalog, today string) models.DailyTally {
	counts := make(map[int]int64)
	if !IsStale(stored, today) {
		for _, e := range stored.Categories {
			if e.Count > 0 {
				counts[e.ID] = e.Count
			}
		}
	}

	entries := make([]models.TallyEntry, 0, len(cat))
	for _, def := range cat {
		entries = append(entries, models.TallyEntry{
			ID:    def.ID,
			Name:  def.Name,
			Price: def.Price,
			Count: counts[def.ID],
		})
	}
	return models.DailyTally{Date: today, Categories: entries}
}

// ApplyCounts overwrites the count of every entry whose id appears in
// updates. Entries without an update keep their count and updates for ids
// outside the tally are ignored. When the same id is sent twice the last one
// wins. No change is made if any update is negative.
func ApplyCounts(t models.DailyTally, updates []models.CountUpdate) (models.DailyTally, error) {
	incoming := make(map[int]int64, len(updates))
	for _, u := range updates {
		if u.Count < 0 {
			return t, fmt.Errorf("%w: id %d", ErrNegativeCount, u.ID)
		}
		incoming[u.ID] = u.Count
	}

	out := models.DailyTally{Date: t.Date, Categories: make([]models.TallyEntry, len(t.Categories))}
	for i, e := range t.Categories {
		if c, ok := incoming[e.ID]; ok {
			e.Count = c
		}
		out.Categories[i] = e
	}
	return out, nil
}

// Zero returns a copy of t with every count reset and the structure kept.
func Zero(t models.DailyTally) models.DailyTally {
	out := models.DailyTally{Date: t.Date, Categories: make([]models.TallyEntry, len(t.Categories))}
	for i, e := range t.Categories {
		e.Count = 0
		out.Categories[i] = e
	}
	return out
}

// DeriveReport builds the report for date from entries. Only entries with a
// positive count are billed, using the price snapshotted on the entry. A
// report without items is still a valid report with zero totals.
func DeriveReport(userID uuid.UUID, date string, entries []models.TallyEntry) models.Report {
	r := models.Report{
		ID:          uuid.New(),
		UserID:      userID,
		Date:        date,
		Items:       []models.ReportLineItem{},
		TotalAmount: decimal.Zero,
		CreatedAt:   time.Now().UTC(),
	}
	for _, e := range entries {
		if e.Count <= 0 {
			continue
		}
		amount := e.Price.Mul(decimal.NewFromInt(e.Count))
		r.Items = append(r.Items, models.ReportLineItem{
			ID:     e.ID,
			Name:   e.Name,
			Price:  e.Price,
			Count:  e.Count,
			Amount: amount,
		})
		r.TotalQty += e.Count
		r.TotalAmount = r.TotalAmount.Add(amount)
	}
	return r
}
