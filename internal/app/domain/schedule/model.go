package schedule

import "time"

// Status is the lifecycle state of a scheduled publish.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusCancelled Status = "cancelled"
)

// Platform is where a frame gets published.
type Platform string

const (
	PlatformWarpcast  Platform = "warpcast"
	PlatformFarcaster Platform = "farcaster"
)

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	return p == PlatformWarpcast || p == PlatformFarcaster
}

// Schedule publishes a frame at a future time.
type Schedule struct {
	ID          string     `json:"id"`
	FrameID     string     `json:"frame_id"`
	UserID      string     `json:"user_id"`
	PublishAt   time.Time  `json:"publish_at"`
	Status      Status     `json:"status"`
	Platform    Platform   `json:"platform"`
	AutoPost    bool       `json:"auto_post"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Due reports whether s is pending and its publish time has passed.
func (s Schedule) Due(now time.Time) bool {
	return s.Status == StatusPending && !s.PublishAt.After(now)
}
