// Package clock supplies the current calendar day for a configured location.
package clock

import (
	"time"

	"github.com/atinyakov/teashop/internal/models"
)

// Clock reports the current local calendar day as YYYY-MM-DD.
type Clock interface {
	Today() string
}

// System is a Clock backed by the wall clock in Location.
type System struct {
	Location *time.Location
	// Now is used instead of time.Now when set.
	Now func() time.Time
}

// Today returns the current day in the clock's location.
func (s System) Today() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc).Format(models.DateLayout)
}

// Fixed is a Clock that always reports the same day.
type Fixed string

// Today returns the fixed day.
func (f Fixed) Today() string { return string(f) }
