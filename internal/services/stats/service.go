package stats

import (
	"context"
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/domain/moderr"
)

// PeriodBounds frames the day, ISO week and month containing "now". All
// bounds are half-open: start inclusive, end exclusive.
type PeriodBounds struct {
	DayStart   time.Time
	DayEnd     time.Time
	WeekStart  time.Time
	WeekEnd    time.Time
	MonthStart time.Time
	MonthEnd   time.Time
}

type Repo interface {
	Aggregate(ctx context.Context, guildID string, bounds PeriodBounds) (model.ActivityReport, error)
}

type Service struct {
	repo  Repo
	nowFn func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo, nowFn: func() time.Time { return time.Now().UTC() }}
}

// BuildReport aggregates the guild's ledger into per-moderator activity.
func (s *Service) BuildReport(ctx context.Context, guildID string) (model.ActivityReport, error) {
	if s.repo == nil {
		return model.ActivityReport{}, moderr.New(moderr.KindPersistence, "stats store is not configured")
	}
	if guildID == "" {
		return model.ActivityReport{}, moderr.New(moderr.KindValidation, "stats require a guild")
	}

	report, err := s.repo.Aggregate(ctx, guildID, ComputePeriodBounds(s.nowFn()))
	if err != nil {
		return model.ActivityReport{}, moderr.Wrap(moderr.KindPersistence, "aggregate activity", err)
	}
	return report, nil
}

// ComputePeriodBounds derives day/week/month windows in UTC. Weeks start
// on Monday.
func ComputePeriodBounds(now time.Time) PeriodBounds {
	now = now.UTC()
	year, month, day := now.Date()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	weekday := int(dayStart.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	weekStart := dayStart.AddDate(0, 0, -(weekday - 1))
	weekEnd := weekStart.AddDate(0, 0, 7)

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	return PeriodBounds{
		DayStart:   dayStart,
		DayEnd:     dayEnd,
		WeekStart:  weekStart,
		WeekEnd:    weekEnd,
		MonthStart: monthStart,
		MonthEnd:   monthEnd,
	}
}
