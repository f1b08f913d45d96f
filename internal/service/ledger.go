package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/teashop/internal/catalog"
	"github.com/atinyakov/teashop/internal/clock"
	"github.com/atinyakov/teashop/internal/lock"
	"github.com/atinyakov/teashop/internal/models"
	"github.com/atinyakov/teashop/internal/repository"
	"github.com/atinyakov/teashop/internal/tally"
	"github.com/google/uuid"
)

// LedgerRepository defines the persistence operations needed by the
// LedgerService.
type LedgerRepository interface {
	// LoadTally returns the stored tally of the user (nil if never saved)
	// or repository.ErrNotFound for an unknown user.
	LoadTally(ctx context.Context, userID uuid.UUID) (*models.DailyTally, error)
	// SaveDay atomically replaces the tally and upserts the report for its
	// date, returning the stored report.
	SaveDay(ctx context.Context, userID uuid.UUID, t models.DailyTally, report models.Report) (models.Report, error)
	// ListReports returns the user's reports, newest date first.
	ListReports(ctx context.Context, userID uuid.UUID) ([]models.Report, error)
	// DeleteReport removes a report by id or date; missing ones are ignored.
	DeleteReport(ctx context.Context, userID uuid.UUID, ref string) error
}

// DayState is the live tally together with the user's report archive.
type DayState struct {
	Today   models.DailyTally
	Report  models.Report
	Reports []models.Report
}

// LedgerService implements the daily tally operations of a shop user.
type LedgerService struct {
	repo    LedgerRepository
	catalog catalog.Catalog
	clock   clock.Clock
	locker  lock.Locker
}

// NewLedgerService constructs a LedgerService. Writes for the same user are
// serialized through locker.
func NewLedgerService(repo LedgerRepository, cat catalog.Catalog, clk clock.Clock, locker lock.Locker) *LedgerService {
	return &LedgerService{repo: repo, catalog: cat, clock: clk, locker: locker}
}

// Current returns today's reconciled tally and the report archive. It never
// writes: a stale stored tally is rolled over only in the returned view.
func (s *LedgerService) Current(ctx context.Context, userID uuid.UUID) (DayState, error) {
	t, err := s.reconciled(ctx, userID, s.clock.Today())
	if err != nil {
		return DayState{}, err
	}
	reports, err := s.repo.ListReports(ctx, userID)
	if err != nil {
		return DayState{}, err
	}
	return DayState{Today: t, Reports: reports}, nil
}

// UpdateToday overwrites the counts of the given categories in today's tally,
// persists it and upserts today's report from the result. date may be empty
// for the current day; any other day is rejected.
func (s *LedgerService) UpdateToday(ctx context.Context, userID uuid.UUID, date string, updates []models.CountUpdate) (DayState, error) {
	today := s.clock.Today()
	if date != "" && date != today {
		return DayState{}, fmt.Errorf("%w: date %s is not the current day %s", ErrValidation, date, today)
	}

	return s.write(ctx, userID, today, func(t models.DailyTally) (models.DailyTally, models.Report, error) {
		updated, err := tally.ApplyCounts(t, updates)
		if err != nil {
			return t, models.Report{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return updated, tally.DeriveReport(userID, today, updated.Categories), nil
	})
}

// Close archives today's counts into the day report and resets the live
// tally to zero counts.
func (s *LedgerService) Close(ctx context.Context, userID uuid.UUID) (DayState, error) {
	today := s.clock.Today()
	return s.write(ctx, userID, today, func(t models.DailyTally) (models.DailyTally, models.Report, error) {
		return tally.Zero(t), tally.DeriveReport(userID, today, t.Categories), nil
	})
}

// ListReports returns the user's reports, newest first.
func (s *LedgerService) ListReports(ctx context.Context, userID uuid.UUID) ([]models.Report, error) {
	return s.repo.ListReports(ctx, userID)
}

// DeleteReport removes one of the user's reports. Unknown references succeed.
func (s *LedgerService) DeleteReport(ctx context.Context, userID uuid.UUID, ref string) error {
	return s.repo.DeleteReport(ctx, userID, ref)
}

type dayChange func(models.DailyTally) (models.DailyTally, models.Report, error)

// write runs change on the reconciled tally under the user's lock and
// persists both results in one step.
func (s *LedgerService) write(ctx context.Context, userID uuid.UUID, today string, change dayChange) (DayState, error) {
	unlock, err := s.locker.Lock(ctx, userID.String())
	if err != nil {
		return DayState{}, fmt.Errorf("lock user: %w", err)
	}
	defer unlock()

	base, err := s.reconciled(ctx, userID, today)
	if err != nil {
		return DayState{}, err
	}
	next, report, err := change(base)
	if err != nil {
		return DayState{}, err
	}

	stored, err := s.repo.SaveDay(ctx, userID, next, report)
	if errors.Is(err, repository.ErrNotFound) {
		return DayState{}, ErrUnauthorized
	}
	if err != nil {
		return DayState{}, err
	}

	reports, err := s.repo.ListReports(ctx, userID)
	if err != nil {
		return DayState{}, err
	}
	return DayState{Today: next, Report: stored, Reports: reports}, nil
}

func (s *LedgerService) reconciled(ctx context.Context, userID uuid.UUID, today string) (models.DailyTally, error) {
	stored, err := s.repo.LoadTally(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.DailyTally{}, ErrUnauthorized
	}
	if err != nil {
		return models.DailyTally{}, err
	}
	return tally.Reconcile(stored, s.catalog, today), nil
}
