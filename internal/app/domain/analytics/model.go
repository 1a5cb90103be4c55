package analytics

import "time"

// EventType classifies an interaction with a frame.
type EventType string

const (
	EventView    EventType = "view"
	EventClick   EventType = "click"
	EventShare   EventType = "share"
	EventLike    EventType = "like"
	EventComment EventType = "comment"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventView, EventClick, EventShare, EventLike, EventComment:
		return true
	}
	return false
}

// Event is one tracked interaction.
type Event struct {
	ID          string         `json:"id"`
	FrameID     string         `json:"frame_id"`
	Type        EventType      `json:"event_type"`
	UserAgent   string         `json:"user_agent,omitempty"`
	IPAddress   string         `json:"ip_address,omitempty"`
	Country     string         `json:"country,omitempty"`
	Coordinates *[2]float64    `json:"coordinates,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// CountryCount is one row of the top-countries table.
type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// DailyStat aggregates one UTC day.
type DailyStat struct {
	Date   string `json:"date"`
	Views  int    `json:"views"`
	Clicks int    `json:"clicks"`
}

// HeatPoint is a click position.
type HeatPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Count int     `json:"count"`
}

// Summary aggregates a frame's events over a window.
type Summary struct {
	TotalViews   int            `json:"total_views"`
	TotalClicks  int            `json:"total_clicks"`
	TotalShares  int            `json:"total_shares"`
	CTR          float64        `json:"ctr"`
	TopCountries []CountryCount `json:"top_countries"`
	DailyStats   []DailyStat    `json:"daily_stats"`
	ClickHeatmap []HeatPoint    `json:"click_heatmap"`
}

// EmptySummary has non-nil slices so it encodes as empty arrays.
func EmptySummary() Summary {
	return Summary{
		TopCountries: []CountryCount{},
		DailyStats:   []DailyStat{},
		ClickHeatmap: []HeatPoint{},
	}
}
