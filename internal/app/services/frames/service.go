package frames

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/R3E-Network/framestore/internal/app/domain/analytics"
	"github.com/R3E-Network/framestore/internal/app/domain/frame"
	"github.com/R3E-Network/framestore/internal/app/domain/notification"
	"github.com/R3E-Network/framestore/internal/app/metrics"
	"github.com/R3E-Network/framestore/internal/app/storage"
	"github.com/R3E-Network/framestore/internal/errors"
	"github.com/R3E-Network/framestore/manifest"
	"github.com/R3E-Network/framestore/pkg/logger"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// likeMilestones are the like counts that notify the frame owner.
var likeMilestones = []int{10, 50, 100, 500, 1000}

// Notifier delivers notifications to users.
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification) (notification.Notification, error)
}

// Service manages frames, their versions and likes.
type Service struct {
	store    storage.FrameStore
	events   storage.AnalyticsStore
	notifier Notifier
	log      *logger.Logger
}

// New constructs a frame service. events and notifier are optional.
func New(store storage.FrameStore, events storage.AnalyticsStore, notifier Notifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("frames")
	}
	return &Service{store: store, events: events, notifier: notifier, log: log}
}

// Validate parses raw and runs the full rule set. Non-object input yields
// the structural error as the only message.
func (s *Service) Validate(raw any) manifest.Result {
	result := manifest.ValidateFrameWithErrors(raw)
	metrics.RecordValidation(result.IsValid)
	return result
}

func (s *Service) requireValid(m *manifest.Manifest) error {
	if m == nil {
		return errors.BadRequest("manifest is required")
	}
	result := m.Validate()
	metrics.RecordValidation(result.IsValid)
	if !result.IsValid {
		return errors.InvalidManifest(result.Errors)
	}
	return nil
}

// Create stores a new frame owned by userID with m as its first version.
func (s *Service) Create(ctx context.Context, userID string, m *manifest.Manifest) (frame.Frame, error) {
	if strings.TrimSpace(userID) == "" {
		return frame.Frame{}, errors.Unauthorized("")
	}
	if err := s.requireValid(m); err != nil {
		return frame.Frame{}, err
	}

	f := frame.Frame{UserID: userID}
	f.Apply(m)
	f, err := s.store.CreateFrame(ctx, f)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("create frame: %w", err)
	}

	v, err := s.store.CreateVersion(ctx, frame.NewVersion(f.ID, m))
	if err != nil {
		s.discard(ctx, f.ID)
		return frame.Frame{}, fmt.Errorf("create initial version: %w", err)
	}
	f.CurrentVersionID = v.ID
	linked, err := s.store.UpdateFrame(ctx, f)
	if err != nil {
		s.discard(ctx, f.ID)
		return frame.Frame{}, fmt.Errorf("link initial version: %w", err)
	}
	f = linked

	s.log.WithField("frame_id", f.ID).
		WithField("user_id", userID).
		WithField("title", f.Title).
		Info("frame created")
	return f, nil
}

// discard removes a frame whose creation did not complete. It runs even when
// ctx is already cancelled.
func (s *Service) discard(ctx context.Context, id string) {
	if err := s.store.DeleteFrame(context.WithoutCancel(ctx), id); err != nil {
		s.log.WithField("frame_id", id).WithError(err).Error("failed to remove partially created frame")
	}
}

// Get returns a frame by ID.
func (s *Service) Get(ctx context.Context, id string) (frame.Frame, error) {
	f, err := s.store.GetFrame(ctx, id)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("get frame: %w", err)
	}
	return f, nil
}

// List pages through all frames newest first. limit defaults to 20 and is
// capped at 100.
func (s *Service) List(ctx context.Context, limit, offset int) ([]frame.Frame, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		return nil, errors.InvalidFormat("offset", "must not be negative")
	}
	list, err := s.store.ListFrames(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	return nonNil(list), nil
}

// ListByUser returns a user's frames newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]frame.Frame, error) {
	list, err := s.store.ListFramesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user frames: %w", err)
	}
	return nonNil(list), nil
}

// Update replaces the frame's manifest, recording it as a new version.
func (s *Service) Update(ctx context.Context, userID, frameID string, m *manifest.Manifest) (frame.Frame, error) {
	if _, err := s.owned(ctx, userID, frameID); err != nil {
		return frame.Frame{}, err
	}
	if _, err := s.CreateVersion(ctx, userID, frameID, m); err != nil {
		return frame.Frame{}, err
	}
	return s.Get(ctx, frameID)
}

// Delete removes a frame owned by userID with its versions and likes.
func (s *Service) Delete(ctx context.Context, userID, frameID string) error {
	if _, err := s.owned(ctx, userID, frameID); err != nil {
		return err
	}
	if err := s.store.DeleteFrame(ctx, frameID); err != nil {
		return fmt.Errorf("delete frame: %w", err)
	}
	s.log.WithField("frame_id", frameID).WithField("user_id", userID).Info("frame deleted")
	return nil
}

// ToggleLike likes the frame for userID, or removes an existing like.
func (s *Service) ToggleLike(ctx context.Context, userID, frameID string) (frame.LikeResult, error) {
	if strings.TrimSpace(userID) == "" {
		return frame.LikeResult{}, errors.Unauthorized("")
	}
	f, err := s.Get(ctx, frameID)
	if err != nil {
		return frame.LikeResult{}, err
	}

	liked, err := s.store.HasLike(ctx, frameID, userID)
	if err != nil {
		return frame.LikeResult{}, fmt.Errorf("check like: %w", err)
	}

	if liked {
		count, err := s.store.RemoveLike(ctx, frameID, userID)
		if stderrors.Is(err, storage.ErrNotFound) {
			// A concurrent request removed it first.
			return frame.LikeResult{Liked: false, Likes: f.Likes}, nil
		}
		if err != nil {
			return frame.LikeResult{}, fmt.Errorf("remove like: %w", err)
		}
		metrics.RecordLike(false)
		return frame.LikeResult{Liked: false, Likes: count}, nil
	}

	count, err := s.store.AddLike(ctx, frameID, userID)
	if stderrors.Is(err, storage.ErrConflict) {
		// A concurrent request liked it first; report the current state.
		current, gerr := s.Get(ctx, frameID)
		if gerr != nil {
			return frame.LikeResult{}, gerr
		}
		return frame.LikeResult{Liked: true, Likes: current.Likes}, nil
	}
	if err != nil {
		return frame.LikeResult{}, fmt.Errorf("add like: %w", err)
	}
	metrics.RecordLike(true)

	s.recordLikeEvent(ctx, frameID, userID)
	s.notifyMilestone(ctx, f, count)
	return frame.LikeResult{Liked: true, Likes: count}, nil
}

func (s *Service) recordLikeEvent(ctx context.Context, frameID, userID string) {
	if s.events == nil {
		return
	}
	_, err := s.events.RecordEvent(ctx, analytics.Event{
		FrameID:  frameID,
		Type:     analytics.EventLike,
		Metadata: map[string]any{"user_id": userID},
	})
	if err != nil {
		s.log.WithError(err).WithField("frame_id", frameID).Warn("record like event")
		return
	}
	metrics.RecordEvent(string(analytics.EventLike))
}

func (s *Service) notifyMilestone(ctx context.Context, f frame.Frame, likes int) {
	if s.notifier == nil || !isMilestone(likes) {
		return
	}
	_, err := s.notifier.Notify(ctx, notification.Notification{
		UserID:  f.UserID,
		FrameID: f.ID,
		Type:    notification.TypeMilestone,
		Title:   fmt.Sprintf("%d likes!", likes),
		Message: fmt.Sprintf("Your frame %q reached %d likes.", f.Title, likes),
		Data:    map[string]any{"likes": likes},
	})
	if err != nil {
		s.log.WithError(err).WithField("frame_id", f.ID).Warn("send milestone notification")
	}
}

func isMilestone(likes int) bool {
	for _, m := range likeMilestones {
		if likes == m {
			return true
		}
	}
	return false
}

// CreateVersion validates m and records it as the frame's new current
// version. The frame's listing columns follow.
func (s *Service) CreateVersion(ctx context.Context, userID, frameID string, m *manifest.Manifest) (frame.Version, error) {
	f, err := s.owned(ctx, userID, frameID)
	if err != nil {
		return frame.Version{}, err
	}
	if err := s.requireValid(m); err != nil {
		return frame.Version{}, err
	}

	v, err := s.store.CreateVersion(ctx, frame.NewVersion(frameID, m))
	if err != nil {
		return frame.Version{}, fmt.Errorf("create version: %w", err)
	}
	f.ApplyVersion(v)
	if _, err := s.store.UpdateFrame(ctx, f); err != nil {
		return frame.Version{}, fmt.Errorf("apply version: %w", err)
	}

	s.log.WithField("frame_id", frameID).
		WithField("version", v.Number).
		Info("frame version created")
	return v, nil
}

// ListVersions returns a frame's versions highest number first.
func (s *Service) ListVersions(ctx context.Context, frameID string) ([]frame.Version, error) {
	if _, err := s.Get(ctx, frameID); err != nil {
		return nil, err
	}
	list, err := s.store.ListVersions(ctx, frameID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	if list == nil {
		list = []frame.Version{}
	}
	return list, nil
}

// SetCurrentVersion restores an earlier version as the frame's content.
func (s *Service) SetCurrentVersion(ctx context.Context, userID, frameID, versionID string) (frame.Version, error) {
	f, err := s.owned(ctx, userID, frameID)
	if err != nil {
		return frame.Version{}, err
	}
	v, err := s.store.SetCurrentVersion(ctx, frameID, versionID)
	if err != nil {
		return frame.Version{}, fmt.Errorf("set current version: %w", err)
	}
	f.ApplyVersion(v)
	if _, err := s.store.UpdateFrame(ctx, f); err != nil {
		return frame.Version{}, fmt.Errorf("apply version: %w", err)
	}

	s.log.WithField("frame_id", frameID).
		WithField("version", v.Number).
		Info("frame version restored")
	return v, nil
}

// owned loads the frame and checks userID owns it.
func (s *Service) owned(ctx context.Context, userID, frameID string) (frame.Frame, error) {
	if strings.TrimSpace(userID) == "" {
		return frame.Frame{}, errors.Unauthorized("")
	}
	f, err := s.Get(ctx, frameID)
	if err != nil {
		return frame.Frame{}, err
	}
	if f.UserID != userID {
		return frame.Frame{}, errors.Forbidden("only the frame owner can modify it")
	}
	return f, nil
}

func nonNil(list []frame.Frame) []frame.Frame {
	if list == nil {
		return []frame.Frame{}
	}
	return list
}
