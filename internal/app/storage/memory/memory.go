package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/R3E-Network/framestore/internal/app/domain/analytics"
	"github.com/R3E-Network/framestore/internal/app/domain/frame"
	"github.com/R3E-Network/framestore/internal/app/domain/notification"
	"github.com/R3E-Network/framestore/internal/app/domain/schedule"
	"github.com/R3E-Network/framestore/internal/app/domain/template"
	"github.com/R3E-Network/framestore/internal/app/domain/user"
	"github.com/R3E-Network/framestore/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	now    func() time.Time

	users         map[string]user.User
	usersByWallet map[string]string

	frames     map[string]frame.Frame
	frameOrder []string
	versions   map[string]frame.Version
	byFrame    map[string][]string
	likes      map[string]map[string]time.Time

	templates     map[string]template.Template
	templateOrder []string

	events map[string][]analytics.Event

	notifications map[string]notification.Notification
	notifOrder    []string

	schedules map[string]schedule.Schedule
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:        1,
		now:           func() time.Time { return time.Now().UTC() },
		users:         make(map[string]user.User),
		usersByWallet: make(map[string]string),
		frames:        make(map[string]frame.Frame),
		versions:      make(map[string]frame.Version),
		byFrame:       make(map[string][]string),
		likes:         make(map[string]map[string]time.Time),
		templates:     make(map[string]template.Template),
		events:        make(map[string][]analytics.Event),
		notifications: make(map[string]notification.Notification),
		schedules:     make(map[string]schedule.Schedule),
	}
}

// WithClock overrides the timestamp source. Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByWallet[u.WalletAddress]; exists {
		return user.User{}, fmt.Errorf("wallet %s: %w", u.WalletAddress, storage.ErrConflict)
	}
	if u.ID == "" {
		u.ID = s.nextIDLocked()
	}
	u.CreatedAt = s.now()
	s.users[u.ID] = u
	s.usersByWallet[u.WalletAddress] = u.ID
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, notFound("user", id)
	}
	return u, nil
}

func (s *Store) GetUserByWallet(_ context.Context, wallet string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByWallet[wallet]
	if !ok {
		return user.User{}, notFound("wallet", wallet)
	}
	return s.users[id], nil
}

// FrameStore implementation ---------------------------------------------------

func (s *Store) CreateFrame(_ context.Context, f frame.Frame) (frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == "" {
		f.ID = s.nextIDLocked()
	} else if _, exists := s.frames[f.ID]; exists {
		return frame.Frame{}, fmt.Errorf("frame %s: %w", f.ID, storage.ErrConflict)
	}
	now := s.now()
	f.CreatedAt = now
	f.UpdatedAt = now
	f.Likes = 0
	f = cloneFrame(f)

	s.frames[f.ID] = f
	s.frameOrder = append(s.frameOrder, f.ID)
	return cloneFrame(f), nil
}

func (s *Store) UpdateFrame(_ context.Context, f frame.Frame) (frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.frames[f.ID]
	if !ok {
		return frame.Frame{}, notFound("frame", f.ID)
	}
	f.CreatedAt = original.CreatedAt
	f.Likes = original.Likes
	f.UpdatedAt = s.now()
	f = cloneFrame(f)

	s.frames[f.ID] = f
	return cloneFrame(f), nil
}

func (s *Store) GetFrame(_ context.Context, id string) (frame.Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.frames[id]
	if !ok {
		return frame.Frame{}, notFound("frame", id)
	}
	return cloneFrame(f), nil
}

func (s *Store) ListFrames(_ context.Context, limit, offset int) ([]frame.Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return []frame.Frame{}, nil
	}
	result := make([]frame.Frame, 0, limit)
	skipped := 0
	for i := len(s.frameOrder) - 1; i >= 0 && len(result) < limit; i-- {
		if skipped < offset {
			skipped++
			continue
		}
		result = append(result, cloneFrame(s.frames[s.frameOrder[i]]))
	}
	return result, nil
}

func (s *Store) ListFramesByUser(_ context.Context, userID string) ([]frame.Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []frame.Frame
	for i := len(s.frameOrder) - 1; i >= 0; i-- {
		if f := s.frames[s.frameOrder[i]]; f.UserID == userID {
			result = append(result, cloneFrame(f))
		}
	}
	return result, nil
}

func (s *Store) DeleteFrame(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.frames[id]; !ok {
		return notFound("frame", id)
	}
	delete(s.frames, id)
	for _, vid := range s.byFrame[id] {
		delete(s.versions, vid)
	}
	delete(s.byFrame, id)
	delete(s.likes, id)
	for i, fid := range s.frameOrder {
		if fid == id {
			s.frameOrder = append(s.frameOrder[:i], s.frameOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) CreateVersion(_ context.Context, v frame.Version) (frame.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.frames[v.FrameID]; !ok {
		return frame.Version{}, notFound("frame", v.FrameID)
	}

	v.Number = 1
	v.ParentVersionID = ""
	for _, vid := range s.byFrame[v.FrameID] {
		existing := s.versions[vid]
		if existing.Number >= v.Number {
			v.Number = existing.Number + 1
		}
		if existing.IsCurrent {
			v.ParentVersionID = existing.ID
			existing.IsCurrent = false
			s.versions[vid] = existing
		}
	}
	v.ID = s.nextIDLocked()
	v.IsCurrent = true
	v.CreatedAt = s.now()
	v.Manifest = *v.Manifest.Clone()

	s.versions[v.ID] = v
	s.byFrame[v.FrameID] = append(s.byFrame[v.FrameID], v.ID)
	return cloneVersion(v), nil
}

func (s *Store) GetVersion(_ context.Context, id string) (frame.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.versions[id]
	if !ok {
		return frame.Version{}, notFound("version", id)
	}
	return cloneVersion(v), nil
}

func (s *Store) ListVersions(_ context.Context, frameID string) ([]frame.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]frame.Version, 0, len(s.byFrame[frameID]))
	for _, vid := range s.byFrame[frameID] {
		result = append(result, cloneVersion(s.versions[vid]))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number > result[j].Number })
	return result, nil
}

func (s *Store) SetCurrentVersion(_ context.Context, frameID, versionID string) (frame.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.versions[versionID]
	if !ok || target.FrameID != frameID {
		return frame.Version{}, notFound("version", versionID)
	}
	for _, vid := range s.byFrame[frameID] {
		v := s.versions[vid]
		v.IsCurrent = vid == versionID
		s.versions[vid] = v
	}
	return cloneVersion(s.versions[versionID]), nil
}

func (s *Store) AddLike(_ context.Context, frameID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.frames[frameID]
	if !ok {
		return 0, notFound("frame", frameID)
	}
	likers := s.likes[frameID]
	if likers == nil {
		likers = make(map[string]time.Time)
		s.likes[frameID] = likers
	}
	if _, exists := likers[userID]; exists {
		return f.Likes, fmt.Errorf("like %s/%s: %w", frameID, userID, storage.ErrConflict)
	}
	likers[userID] = s.now()
	f.Likes++
	s.frames[frameID] = f
	return f.Likes, nil
}

func (s *Store) RemoveLike(_ context.Context, frameID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.frames[frameID]
	if !ok {
		return 0, notFound("frame", frameID)
	}
	if _, exists := s.likes[frameID][userID]; !exists {
		return f.Likes, notFound("like", frameID+"/"+userID)
	}
	delete(s.likes[frameID], userID)
	if f.Likes > 0 {
		f.Likes--
	}
	s.frames[frameID] = f
	return f.Likes, nil
}

func (s *Store) HasLike(_ context.Context, frameID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.likes[frameID][userID]
	return exists, nil
}

// TemplateStore implementation ------------------------------------------------

func (s *Store) CreateTemplate(_ context.Context, t template.Template) (template.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = s.nextIDLocked()
	}
	t.CreatedAt = s.now()
	t = cloneTemplate(t)
	s.templates[t.ID] = t
	s.templateOrder = append(s.templateOrder, t.ID)
	return cloneTemplate(t), nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (template.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok {
		return template.Template{}, notFound("template", id)
	}
	return cloneTemplate(t), nil
}

func (s *Store) ListTemplates(_ context.Context, filter template.Filter) ([]template.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []template.Template
	for _, id := range s.templateOrder {
		if t := s.templates[id]; filter.Matches(t) {
			result = append(result, cloneTemplate(t))
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Downloads > result[j].Downloads })
	return result, nil
}

func (s *Store) IncrementDownloads(_ context.Context, id string) (template.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[id]
	if !ok {
		return template.Template{}, notFound("template", id)
	}
	t.Downloads++
	s.templates[id] = t
	return cloneTemplate(t), nil
}

// AnalyticsStore implementation -----------------------------------------------

func (s *Store) RecordEvent(_ context.Context, e analytics.Event) (analytics.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.nextIDLocked()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e = cloneEvent(e)
	s.events[e.FrameID] = append(s.events[e.FrameID], e)
	return cloneEvent(e), nil
}

func (s *Store) ListEvents(_ context.Context, frameID string, since time.Time) ([]analytics.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []analytics.Event
	for _, e := range s.events[frameID] {
		if !e.CreatedAt.Before(since) {
			result = append(result, cloneEvent(e))
		}
	}
	return result, nil
}

// NotificationStore implementation --------------------------------------------

func (s *Store) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = s.nextIDLocked()
	}
	n.CreatedAt = s.now()
	n.Data = cloneAny(n.Data)
	s.notifications[n.ID] = n
	s.notifOrder = append(s.notifOrder, n.ID)
	return cloneNotification(n), nil
}

func (s *Store) GetNotification(_ context.Context, id string) (notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return notification.Notification{}, notFound("notification", id)
	}
	return cloneNotification(n), nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []notification.Notification
	for i := len(s.notifOrder) - 1; i >= 0; i-- {
		n := s.notifications[s.notifOrder[i]]
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		result = append(result, cloneNotification(n))
	}
	return result, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id string) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return notification.Notification{}, notFound("notification", id)
	}
	n.Read = true
	s.notifications[id] = n
	return cloneNotification(n), nil
}

// ScheduleStore implementation ------------------------------------------------

func (s *Store) CreateSchedule(_ context.Context, sc schedule.Schedule) (schedule.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc.ID == "" {
		sc.ID = s.nextIDLocked()
	}
	sc.CreatedAt = s.now()
	s.schedules[sc.ID] = sc
	return cloneSchedule(sc), nil
}

func (s *Store) GetSchedule(_ context.Context, id string) (schedule.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.schedules[id]
	if !ok {
		return schedule.Schedule{}, notFound("schedule", id)
	}
	return cloneSchedule(sc), nil
}

func (s *Store) UpdateSchedule(_ context.Context, sc schedule.Schedule) (schedule.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.schedules[sc.ID]
	if !ok {
		return schedule.Schedule{}, notFound("schedule", sc.ID)
	}
	sc.CreatedAt = original.CreatedAt
	s.schedules[sc.ID] = cloneSchedule(sc)
	return cloneSchedule(sc), nil
}

func (s *Store) ListSchedulesByUser(_ context.Context, userID string) ([]schedule.Schedule, error) {
	return s.filterSchedules(func(sc schedule.Schedule) bool { return sc.UserID == userID }), nil
}

func (s *Store) ListDueSchedules(_ context.Context, now time.Time) ([]schedule.Schedule, error) {
	return s.filterSchedules(func(sc schedule.Schedule) bool { return sc.Due(now) }), nil
}

func (s *Store) filterSchedules(keep func(schedule.Schedule) bool) []schedule.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []schedule.Schedule
	for _, sc := range s.schedules {
		if keep(sc) {
			result = append(result, cloneSchedule(sc))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PublishAt.Equal(result[j].PublishAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].PublishAt.Before(result[j].PublishAt)
	})
	return result
}

// Helpers ---------------------------------------------------------------------

func cloneFrame(f frame.Frame) frame.Frame {
	f.Manifest = *f.Manifest.Clone()
	return f
}

func cloneVersion(v frame.Version) frame.Version {
	v.Manifest = *v.Manifest.Clone()
	return v
}

func cloneTemplate(t template.Template) template.Template {
	t.Manifest = *t.Manifest.Clone()
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	return t
}

func cloneEvent(e analytics.Event) analytics.Event {
	if e.Coordinates != nil {
		c := *e.Coordinates
		e.Coordinates = &c
	}
	e.Metadata = cloneAny(e.Metadata)
	return e
}

func cloneNotification(n notification.Notification) notification.Notification {
	n.Data = cloneAny(n.Data)
	return n
}

func cloneSchedule(sc schedule.Schedule) schedule.Schedule {
	if sc.PublishedAt != nil {
		t := *sc.PublishedAt
		sc.PublishedAt = &t
	}
	return sc
}

func cloneAny(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
