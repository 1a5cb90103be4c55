package notification

import "time"

// Type classifies a notification.
type Type string

const (
	TypeMilestone     Type = "milestone"
	TypeCollaboration Type = "collaboration"
	TypeSystem        Type = "system"
	TypeAchievement   Type = "achievement"
)

// Valid reports whether t is a known notification type.
func (t Type) Valid() bool {
	switch t {
	case TypeMilestone, TypeCollaboration, TypeSystem, TypeAchievement:
		return true
	}
	return false
}

// Notification is a message delivered to a user's inbox.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	FrameID   string         `json:"frame_id,omitempty"`
	Type      Type           `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}
