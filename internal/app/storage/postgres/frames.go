package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/R3E-Network/framestore/internal/app/domain/frame"
	"github.com/R3E-Network/framestore/internal/app/storage"
	"github.com/R3E-Network/framestore/manifest"
)

const frameColumns = `id, user_id, title, description, image_url, button1_label, button1_target,
	json_full, likes, current_version_id, created_at, updated_at`

const versionColumns = `id, frame_id, parent_version_id, version_number, title, description, image_url,
	button1_label, button1_target, json_full, is_current, created_at`

type frameRow struct {
	ID               string         `db:"id"`
	UserID           string         `db:"user_id"`
	Title            string         `db:"title"`
	Description      string         `db:"description"`
	ImageURL         string         `db:"image_url"`
	Button1Label     string         `db:"button1_label"`
	Button1Target    string         `db:"button1_target"`
	JSONFull         []byte         `db:"json_full"`
	Likes            int            `db:"likes"`
	CurrentVersionID sql.NullString `db:"current_version_id"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r frameRow) toDomain() (frame.Frame, error) {
	f := frame.Frame{
		ID:               r.ID,
		UserID:           r.UserID,
		Title:            r.Title,
		Description:      r.Description,
		ImageURL:         r.ImageURL,
		Button1Label:     r.Button1Label,
		Button1Target:    r.Button1Target,
		Likes:            r.Likes,
		CurrentVersionID: r.CurrentVersionID.String,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if err := decodeManifest(r.JSONFull, &f.Manifest); err != nil {
		return frame.Frame{}, fmt.Errorf("frame %s: %w", r.ID, err)
	}
	return f, nil
}

type versionRow struct {
	ID              string         `db:"id"`
	FrameID         string         `db:"frame_id"`
	ParentVersionID sql.NullString `db:"parent_version_id"`
	Number          int            `db:"version_number"`
	Title           string         `db:"title"`
	Description     string         `db:"description"`
	ImageURL        string         `db:"image_url"`
	Button1Label    string         `db:"button1_label"`
	Button1Target   string         `db:"button1_target"`
	JSONFull        []byte         `db:"json_full"`
	IsCurrent       bool           `db:"is_current"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (r versionRow) toDomain() (frame.Version, error) {
	v := frame.Version{
		ID:              r.ID,
		FrameID:         r.FrameID,
		ParentVersionID: r.ParentVersionID.String,
		Number:          r.Number,
		Title:           r.Title,
		Description:     r.Description,
		ImageURL:        r.ImageURL,
		Button1Label:    r.Button1Label,
		Button1Target:   r.Button1Target,
		IsCurrent:       r.IsCurrent,
		CreatedAt:       r.CreatedAt,
	}
	if err := decodeManifest(r.JSONFull, &v.Manifest); err != nil {
		return frame.Version{}, fmt.Errorf("version %s: %w", r.ID, err)
	}
	return v, nil
}

func decodeManifest(raw []byte, dst *manifest.Manifest) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *Store) CreateFrame(ctx context.Context, f frame.Frame) (frame.Frame, error) {
	f.ID = newID(f.ID)
	now := s.now()
	f.CreatedAt = now
	f.UpdatedAt = now
	f.Likes = 0

	body, err := json.Marshal(f.Manifest)
	if err != nil {
		return frame.Frame{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO frames (id, user_id, title, description, image_url, button1_label, button1_target,
			json_full, likes, current_version_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, f.ID, f.UserID, f.Title, f.Description, f.ImageURL, f.Button1Label, f.Button1Target,
		body, f.Likes, nullString(f.CurrentVersionID), f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return frame.Frame{}, mapErr("frame", f.ID, err)
	}
	return f, nil
}

func (s *Store) UpdateFrame(ctx context.Context, f frame.Frame) (frame.Frame, error) {
	f.UpdatedAt = s.now()

	body, err := json.Marshal(f.Manifest)
	if err != nil {
		return frame.Frame{}, err
	}

	var kept struct {
		CreatedAt time.Time `db:"created_at"`
		Likes     int       `db:"likes"`
	}
	err = s.db.GetContext(ctx, &kept, `
		UPDATE frames
		SET title = $2, description = $3, image_url = $4, button1_label = $5, button1_target = $6,
			json_full = $7, current_version_id = $8, updated_at = $9
		WHERE id = $1
		RETURNING created_at, likes
	`, f.ID, f.Title, f.Description, f.ImageURL, f.Button1Label, f.Button1Target,
		body, nullString(f.CurrentVersionID), f.UpdatedAt)
	if err != nil {
		return frame.Frame{}, mapErr("frame", f.ID, err)
	}
	f.CreatedAt = kept.CreatedAt
	f.Likes = kept.Likes
	return f, nil
}

func (s *Store) GetFrame(ctx context.Context, id string) (frame.Frame, error) {
	var row frameRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+frameColumns+` FROM frames WHERE id = $1`, id); err != nil {
		return frame.Frame{}, mapErr("frame", id, err)
	}
	return row.toDomain()
}

func (s *Store) ListFrames(ctx context.Context, limit, offset int) ([]frame.Frame, error) {
	var rows []frameRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+frameColumns+`
		FROM frames
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return framesFromRows(rows)
}

func (s *Store) ListFramesByUser(ctx context.Context, userID string) ([]frame.Frame, error) {
	var rows []frameRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+frameColumns+`
		FROM frames
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return framesFromRows(rows)
}

func framesFromRows(rows []frameRow) ([]frame.Frame, error) {
	result := make([]frame.Frame, 0, len(rows))
	for _, row := range rows {
		f, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, nil
}

func (s *Store) DeleteFrame(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM frames WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return mapErr("frame", id, sql.ErrNoRows)
	}
	return nil
}

// --- versions ---------------------------------------------------------------

func (s *Store) CreateVersion(ctx context.Context, v frame.Version) (frame.Version, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return frame.Version{}, err
	}
	defer rollback(tx)

	var locked string
	if err := tx.GetContext(ctx, &locked, `SELECT id FROM frames WHERE id = $1 FOR UPDATE`, v.FrameID); err != nil {
		return frame.Version{}, mapErr("frame", v.FrameID, err)
	}

	var head struct {
		MaxNumber int    `db:"max_number"`
		CurrentID string `db:"current_id"`
	}
	if err := tx.GetContext(ctx, &head, `
		SELECT COALESCE(MAX(version_number), 0) AS max_number,
			COALESCE(MAX(id) FILTER (WHERE is_current), '') AS current_id
		FROM frame_versions
		WHERE frame_id = $1
	`, v.FrameID); err != nil {
		return frame.Version{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE frame_versions SET is_current = FALSE WHERE frame_id = $1 AND is_current
	`, v.FrameID); err != nil {
		return frame.Version{}, err
	}

	v.ID = newID(v.ID)
	v.Number = head.MaxNumber + 1
	v.ParentVersionID = head.CurrentID
	v.IsCurrent = true
	v.CreatedAt = s.now()

	body, err := json.Marshal(v.Manifest)
	if err != nil {
		return frame.Version{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO frame_versions (`+versionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, v.ID, v.FrameID, nullString(v.ParentVersionID), v.Number, v.Title, v.Description, v.ImageURL,
		v.Button1Label, v.Button1Target, body, v.IsCurrent, v.CreatedAt); err != nil {
		return frame.Version{}, mapErr("version", v.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return frame.Version{}, err
	}
	return v, nil
}

func (s *Store) GetVersion(ctx context.Context, id string) (frame.Version, error) {
	var row versionRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+versionColumns+` FROM frame_versions WHERE id = $1`, id); err != nil {
		return frame.Version{}, mapErr("version", id, err)
	}
	return row.toDomain()
}

func (s *Store) ListVersions(ctx context.Context, frameID string) ([]frame.Version, error) {
	var rows []versionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+versionColumns+`
		FROM frame_versions
		WHERE frame_id = $1
		ORDER BY version_number DESC
	`, frameID)
	if err != nil {
		return nil, err
	}
	result := make([]frame.Version, 0, len(rows))
	for _, row := range rows {
		v, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

func (s *Store) SetCurrentVersion(ctx context.Context, frameID, versionID string) (frame.Version, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return frame.Version{}, err
	}
	defer rollback(tx)

	var row versionRow
	if err := tx.GetContext(ctx, &row, `
		SELECT `+versionColumns+` FROM frame_versions WHERE id = $1 AND frame_id = $2
	`, versionID, frameID); err != nil {
		return frame.Version{}, mapErr("version", versionID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE frame_versions SET is_current = (id = $2) WHERE frame_id = $1
	`, frameID, versionID); err != nil {
		return frame.Version{}, err
	}
	if err := tx.Commit(); err != nil {
		return frame.Version{}, err
	}

	row.IsCurrent = true
	return row.toDomain()
}

// --- likes ------------------------------------------------------------------

func (s *Store) AddLike(ctx context.Context, frameID, userID string) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO likes (frame_id, user_id, created_at) VALUES ($1, $2, $3)
	`, frameID, userID, s.now()); err != nil {
		return 0, mapErr("like", frameID+"/"+userID, err)
	}

	var likes int
	if err := tx.GetContext(ctx, &likes, `
		UPDATE frames SET likes = likes + 1 WHERE id = $1 RETURNING likes
	`, frameID); err != nil {
		return 0, mapErr("frame", frameID, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return likes, nil
}

func (s *Store) RemoveLike(ctx context.Context, frameID, userID string) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer rollback(tx)

	result, err := tx.ExecContext(ctx, `DELETE FROM likes WHERE frame_id = $1 AND user_id = $2`, frameID, userID)
	if err != nil {
		return 0, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return 0, fmt.Errorf("like %s/%s: %w", frameID, userID, storage.ErrNotFound)
	}

	var likes int
	if err := tx.GetContext(ctx, &likes, `
		UPDATE frames SET likes = GREATEST(likes - 1, 0) WHERE id = $1 RETURNING likes
	`, frameID); err != nil {
		return 0, mapErr("frame", frameID, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return likes, nil
}

func (s *Store) HasLike(ctx context.Context, frameID, userID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM likes WHERE frame_id = $1 AND user_id = $2)
	`, frameID, userID)
	return exists, err
}
