package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/R3E-Network/framestore/internal/app/domain/analytics"
	"github.com/R3E-Network/framestore/internal/app/metrics"
	"github.com/R3E-Network/framestore/internal/app/storage"
	"github.com/R3E-Network/framestore/internal/errors"
	"github.com/R3E-Network/framestore/pkg/logger"
)

const (
	defaultDays     = 30
	maxDays         = 365
	topCountryLimit = 10
	maxUserAgentLen = 512
)

// Service records frame interactions and aggregates them into summaries.
type Service struct {
	frames storage.FrameStore
	store  storage.AnalyticsStore
	log    *logger.Logger
	now    func() time.Time
}

// New constructs an analytics service.
func New(frames storage.FrameStore, store storage.AnalyticsStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("analytics")
	}
	return &Service{frames: frames, store: store, log: log, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Track records one interaction with an existing frame.
func (s *Service) Track(ctx context.Context, e analytics.Event) (analytics.Event, error) {
	e.FrameID = strings.TrimSpace(e.FrameID)
	if e.FrameID == "" {
		return analytics.Event{}, errors.BadRequest("frame_id is required")
	}
	if !e.Type.Valid() {
		return analytics.Event{}, errors.InvalidFormat("event_type", "must be view, click, share, like or comment")
	}
	if _, err := s.frames.GetFrame(ctx, e.FrameID); err != nil {
		return analytics.Event{}, fmt.Errorf("track event: %w", err)
	}

	e.ID = ""
	e.Country = strings.TrimSpace(e.Country)
	if len(e.UserAgent) > maxUserAgentLen {
		e.UserAgent = e.UserAgent[:maxUserAgentLen]
	}
	e.CreatedAt = s.now().UTC()

	recorded, err := s.store.RecordEvent(ctx, e)
	if err != nil {
		return analytics.Event{}, fmt.Errorf("record event: %w", err)
	}
	metrics.RecordEvent(string(recorded.Type))
	return recorded, nil
}

// Summary aggregates the frame's events over the last days days (default
// 30). Store failures degrade to an empty summary.
func (s *Service) Summary(ctx context.Context, frameID string, days int) (analytics.Summary, error) {
	if days <= 0 {
		days = defaultDays
	}
	if days > maxDays {
		return analytics.Summary{}, errors.InvalidFormat("days", fmt.Sprintf("must be at most %d", maxDays))
	}

	since := s.now().UTC().AddDate(0, 0, -days)
	events, err := s.store.ListEvents(ctx, frameID, since)
	if err != nil {
		s.log.WithError(err).WithField("frame_id", frameID).Warn("analytics unavailable, returning empty summary")
		return analytics.EmptySummary(), nil
	}
	return Summarize(events), nil
}

// Summarize aggregates events. Countries are ranked by count then name,
// daily stats ascend by UTC date, and clicks at identical coordinates merge
// into one heatmap point.
func Summarize(events []analytics.Event) analytics.Summary {
	sum := analytics.EmptySummary()
	countries := map[string]int{}
	days := map[string]*analytics.DailyStat{}
	type point struct{ x, y float64 }
	heat := map[point]int{}

	for _, e := range events {
		switch e.Type {
		case analytics.EventView:
			sum.TotalViews++
		case analytics.EventClick:
			sum.TotalClicks++
			if e.Coordinates != nil {
				heat[point{e.Coordinates[0], e.Coordinates[1]}]++
			}
		case analytics.EventShare:
			sum.TotalShares++
		}

		if e.Country != "" {
			countries[e.Country]++
		}

		date := e.CreatedAt.UTC().Format("2006-01-02")
		day, ok := days[date]
		if !ok {
			day = &analytics.DailyStat{Date: date}
			days[date] = day
		}
		switch e.Type {
		case analytics.EventView:
			day.Views++
		case analytics.EventClick:
			day.Clicks++
		}
	}

	if sum.TotalViews > 0 {
		sum.CTR = float64(sum.TotalClicks) / float64(sum.TotalViews) * 100
	}

	for country, count := range countries {
		sum.TopCountries = append(sum.TopCountries, analytics.CountryCount{Country: country, Count: count})
	}
	sort.Slice(sum.TopCountries, func(i, j int) bool {
		a, b := sum.TopCountries[i], sum.TopCountries[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Country < b.Country
	})
	if len(sum.TopCountries) > topCountryLimit {
		sum.TopCountries = sum.TopCountries[:topCountryLimit]
	}

	for _, day := range days {
		sum.DailyStats = append(sum.DailyStats, *day)
	}
	sort.Slice(sum.DailyStats, func(i, j int) bool { return sum.DailyStats[i].Date < sum.DailyStats[j].Date })

	for p, count := range heat {
		sum.ClickHeatmap = append(sum.ClickHeatmap, analytics.HeatPoint{X: p.x, Y: p.y, Count: count})
	}
	sort.Slice(sum.ClickHeatmap, func(i, j int) bool {
		a, b := sum.ClickHeatmap[i], sum.ClickHeatmap[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
	return sum
}
