// Package catalog provides the ordered list of sellable categories that daily
// tallies are reconciled against.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/atinyakov/teashop/internal/models"
	"github.com/shopspring/decimal"
)

// Catalog is an ordered, read-only list of category definitions.
type Catalog []models.CategoryDef

var (
	// ErrDuplicateID is returned when two definitions share an id.
	ErrDuplicateID = errors.New("duplicate category id")
	// ErrNegativePrice is returned for a definition priced below zero.
	ErrNegativePrice = errors.New("negative category price")
	// ErrEmptyName is returned for a definition without a display name.
	ErrEmptyName = errors.New("empty category name")
	// ErrPriceScale is returned for a price with more than two decimal places.
	ErrPriceScale = errors.New("category price has more than 2 decimal places")
)

// Default returns the shop's built-in catalog.
func Default() Catalog {
	return Catalog{
		{ID: 1, Name: "Tea", Price: decimal.NewFromInt(10)},
		{ID: 2, Name: "Coffee", Price: decimal.NewFromInt(20)},
		{ID: 3, Name: "Black Coffee", Price: decimal.NewFromInt(15)},
		{ID: 4, Name: "Cigarette (₹10)", Price: decimal.NewFromInt(10)},
		{ID: 5, Name: "Cigarette (₹12)", Price: decimal.NewFromInt(12)},
		{ID: 6, Name: "Cigarette (₹17)", Price: decimal.NewFromInt(17)},
		{ID: 7, Name: "Cigarette (₹20)", Price: decimal.NewFromInt(20)},
		{ID: 8, Name: "Biscuits", Price: decimal.NewFromInt(5)},
		{ID: 9, Name: "Sweet", Price: decimal.NewFromInt(5)},
		{ID: 10, Name: "Water Bottle (Small)", Price: decimal.NewFromInt(10)},
		{ID: 11, Name: "Water Bottle (Large)", Price: decimal.NewFromInt(20)},
		{ID: 12, Name: "Doughnut", Price: decimal.NewFromInt(10)},
	}
}

// Load reads a JSON array of category definitions from path and validates it.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that ids are unique and names are set. Prices must not be
// negative and are limited to whole paise (two decimal places), the precision
// report totals are stored with.
func (c Catalog) Validate() error {
	seen := make(map[int]struct{}, len(c))
	for _, def := range c {
		if _, ok := seen[def.ID]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateID, def.ID)
		}
		seen[def.ID] = struct{}{}
		if def.Name == "" {
			return fmt.Errorf("%w: id %d", ErrEmptyName, def.ID)
		}
		if def.Price.IsNegative() {
			return fmt.Errorf("%w: id %d", ErrNegativePrice, def.ID)
		}
		if !def.Price.Equal(def.Price.Round(2)) {
			return fmt.Errorf("%w: id %d price %s", ErrPriceScale, def.ID, def.Price)
		}
	}
	return nil
}
