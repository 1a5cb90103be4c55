package supabase

import (
	"context"
	"fmt"

	"github.com/R3E-Network/framestore/internal/app/domain/frame"
	"github.com/R3E-Network/framestore/internal/app/storage"
)

func (s *Store) CreateFrame(ctx context.Context, f frame.Frame) (frame.Frame, error) {
	f.ID = newID(f.ID)
	now := s.now()
	f.CreatedAt = now
	f.UpdatedAt = now
	f.Likes = 0

	resp, err := s.client.From(tableFrames).ExecuteInsert(ctx, f)
	return first[frame.Frame](resp, err, "frame", f.ID)
}

func (s *Store) UpdateFrame(ctx context.Context, f frame.Frame) (frame.Frame, error) {
	var current any
	if f.CurrentVersionID != "" {
		current = f.CurrentVersionID
	}
	patch := map[string]any{
		"title":              f.Title,
		"description":        f.Description,
		"image_url":          f.ImageURL,
		"button1_label":      f.Button1Label,
		"button1_target":     f.Button1Target,
		"json_full":          f.Manifest,
		"current_version_id": current,
		"updated_at":         s.now(),
	}
	resp, err := s.client.From(tableFrames).Eq("id", f.ID).ExecuteUpdate(ctx, patch)
	return first[frame.Frame](resp, err, "frame", f.ID)
}

func (s *Store) GetFrame(ctx context.Context, id string) (frame.Frame, error) {
	resp, err := s.client.From(tableFrames).Select("*").Eq("id", id).Limit(1).Execute(ctx)
	return first[frame.Frame](resp, err, "frame", id)
}

func (s *Store) ListFrames(ctx context.Context, limit, offset int) ([]frame.Frame, error) {
	if limit <= 0 {
		return []frame.Frame{}, nil
	}
	if offset < 0 {
		offset = 0
	}
	resp, err := s.client.From(tableFrames).Select("*").
		Order("created_at", false).Order("id", false).
		Limit(limit).Offset(offset).
		Execute(ctx)
	return rows[frame.Frame](resp, err, "frames", "")
}

func (s *Store) ListFramesByUser(ctx context.Context, userID string) ([]frame.Frame, error) {
	resp, err := s.client.From(tableFrames).Select("*").Eq("user_id", userID).
		Order("created_at", false).Order("id", false).
		Execute(ctx)
	return rows[frame.Frame](resp, err, "frames of user", userID)
}

// DeleteFrame relies on ON DELETE CASCADE for versions and likes.
func (s *Store) DeleteFrame(ctx context.Context, id string) error {
	resp, err := s.client.From(tableFrames).Eq("id", id).ExecuteDelete(ctx)
	_, err = first[frame.Frame](resp, err, "frame", id)
	return err
}

// CreateVersion delegates numbering to create_frame_version, which locks the
// frame row so concurrent saves get distinct numbers.
func (s *Store) CreateVersion(ctx context.Context, v frame.Version) (frame.Version, error) {
	v.ID = newID(v.ID)
	resp, err := s.client.RPC(ctx, "create_frame_version", map[string]any{
		"p_id":             v.ID,
		"p_frame_id":       v.FrameID,
		"p_title":          v.Title,
		"p_description":    v.Description,
		"p_image_url":      v.ImageURL,
		"p_button1_label":  v.Button1Label,
		"p_button1_target": v.Button1Target,
		"p_json_full":      v.Manifest,
	})
	return first[frame.Version](resp, err, "frame", v.FrameID)
}

func (s *Store) GetVersion(ctx context.Context, id string) (frame.Version, error) {
	resp, err := s.client.From(tableVersions).Select("*").Eq("id", id).Limit(1).Execute(ctx)
	return first[frame.Version](resp, err, "version", id)
}

func (s *Store) ListVersions(ctx context.Context, frameID string) ([]frame.Version, error) {
	resp, err := s.client.From(tableVersions).Select("*").Eq("frame_id", frameID).
		Order("version_number", false).
		Execute(ctx)
	return rows[frame.Version](resp, err, "versions of frame", frameID)
}

func (s *Store) SetCurrentVersion(ctx context.Context, frameID, versionID string) (frame.Version, error) {
	resp, err := s.client.RPC(ctx, "set_current_frame_version", map[string]string{
		"p_frame_id":   frameID,
		"p_version_id": versionID,
	})
	return first[frame.Version](resp, err, "version", versionID)
}

type likeRow struct {
	FrameID string `json:"frame_id"`
	UserID  string `json:"user_id"`
}

func (s *Store) AddLike(ctx context.Context, frameID, userID string) (int, error) {
	resp, err := s.client.From(tableLikes).ExecuteInsert(ctx, map[string]any{
		"frame_id":   frameID,
		"user_id":    userID,
		"created_at": s.now(),
	})
	if _, err := rows[likeRow](resp, err, "like on frame", frameID); err != nil {
		return 0, err
	}
	return s.likeCount(ctx, "increment_likes", frameID)
}

func (s *Store) RemoveLike(ctx context.Context, frameID, userID string) (int, error) {
	resp, err := s.client.From(tableLikes).Eq("frame_id", frameID).Eq("user_id", userID).ExecuteDelete(ctx)
	if _, err := first[likeRow](resp, err, "like on frame", frameID); err != nil {
		return 0, err
	}
	return s.likeCount(ctx, "decrement_likes", frameID)
}

func (s *Store) likeCount(ctx context.Context, fn, frameID string) (int, error) {
	resp, err := s.client.RPC(ctx, fn, map[string]string{"p_frame_id": frameID})
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", fn, frameID, err)
	}
	if err := resp.Error(); err != nil {
		return 0, mapErr("frame", frameID, err)
	}
	var likes *int
	if err := resp.JSON(&likes); err != nil {
		return 0, fmt.Errorf("decode %s: %w", fn, err)
	}
	if likes == nil {
		return 0, fmt.Errorf("frame %s: %w", frameID, storage.ErrNotFound)
	}
	return *likes, nil
}

func (s *Store) HasLike(ctx context.Context, frameID, userID string) (bool, error) {
	resp, err := s.client.From(tableLikes).Select("frame_id,user_id").
		Eq("frame_id", frameID).Eq("user_id", userID).Limit(1).
		Execute(ctx)
	list, err := rows[likeRow](resp, err, "like on frame", frameID)
	if err != nil {
		return false, err
	}
	return len(list) > 0, nil
}
