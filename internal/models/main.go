// Package models defines the core data structures for users, daily tallies
// and archived day reports.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day format used for tally and report dates.
const DateLayout = "2006-01-02"

func init() {
	// Prices and amounts are plain JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

// User represents a shop user with credentials and the live tally.
type User struct {
	// ID is the unique identifier for the user.
	ID uuid.UUID
	// Phone is the E.164 formatted phone number used to log in.
	Phone string
	// PinHash is the bcrypt hash of the user's PIN.
	PinHash []byte
	// Today is the user's current tally, nil until the first write.
	Today *DailyTally
	// CreatedAt is the provisioning time.
	CreatedAt time.Time
}

// CategoryDef is one sellable item of the catalog.
type CategoryDef struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// TallyEntry is the running count of one category. Name and Price are
// snapshotted from the catalog when the tally is reconciled.
type TallyEntry struct {
	ID    int             `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Count int64           `json:"count"`
}

// DailyTally holds the counts for a single calendar day.
type DailyTally struct {
	// Date is the day the counts belong to, formatted with DateLayout.
	Date string `json:"date"`
	// Categories has one entry per catalog category, in catalog order.
	Categories []TallyEntry `json:"categories"`
}

// CountUpdate is an incoming count for one category id.
type CountUpdate struct {
	ID    int
	Count int64
}

// ReportLineItem is a billed category of a report.
type ReportLineItem struct {
	ID     int             `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Report is the archived result of a day. There is at most one report per
// user and date.
type Report struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"userId"`
	Date        string           `json:"date"`
	Items       []ReportLineItem `json:"items"`
	TotalQty    int64            `json:"totalQty"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	CreatedAt   time.Time        `json:"createdAt"`
}
