package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/R3E-Network/framestore/internal/app/domain/template"
)

const templateColumns = `id, creator_id, name, description, category, tags, preview_image, template_data,
	is_public, is_featured, price_cents, downloads, rating, created_at`

type templateRow struct {
	ID           string         `db:"id"`
	CreatorID    string         `db:"creator_id"`
	Name         string         `db:"name"`
	Description  string         `db:"description"`
	Category     string         `db:"category"`
	Tags         pq.StringArray `db:"tags"`
	PreviewImage string         `db:"preview_image"`
	TemplateData []byte         `db:"template_data"`
	IsPublic     bool           `db:"is_public"`
	IsFeatured   bool           `db:"is_featured"`
	PriceCents   int            `db:"price_cents"`
	Downloads    int            `db:"downloads"`
	Rating       float64        `db:"rating"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r templateRow) toDomain() (template.Template, error) {
	t := template.Template{
		ID:           r.ID,
		CreatorID:    r.CreatorID,
		Name:         r.Name,
		Description:  r.Description,
		Category:     r.Category,
		Tags:         []string(r.Tags),
		PreviewImage: r.PreviewImage,
		IsPublic:     r.IsPublic,
		IsFeatured:   r.IsFeatured,
		PriceCents:   r.PriceCents,
		Downloads:    r.Downloads,
		Rating:       r.Rating,
		CreatedAt:    r.CreatedAt,
	}
	if err := decodeManifest(r.TemplateData, &t.Manifest); err != nil {
		return template.Template{}, fmt.Errorf("template %s: %w", r.ID, err)
	}
	return t, nil
}

func (s *Store) CreateTemplate(ctx context.Context, t template.Template) (template.Template, error) {
	t.ID = newID(t.ID)
	t.CreatedAt = s.now()
	if t.Tags == nil {
		t.Tags = []string{}
	}

	body, err := json.Marshal(t.Manifest)
	if err != nil {
		return template.Template{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, t.ID, t.CreatorID, t.Name, t.Description, t.Category, pq.Array(t.Tags), t.PreviewImage, body,
		t.IsPublic, t.IsFeatured, t.PriceCents, t.Downloads, t.Rating, t.CreatedAt)
	if err != nil {
		return template.Template{}, mapErr("template", t.ID, err)
	}
	return t, nil
}

func (s *Store) GetTemplate(ctx context.Context, id string) (template.Template, error) {
	var row templateRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+templateColumns+` FROM templates WHERE id = $1`, id); err != nil {
		return template.Template{}, mapErr("template", id, err)
	}
	return row.toDomain()
}

func (s *Store) ListTemplates(ctx context.Context, filter template.Filter) ([]template.Template, error) {
	conds := []string{"is_public = TRUE"}
	var args []any
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.FeaturedOnly {
		conds = append(conds, "is_featured = TRUE")
	}

	var rows []templateRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY downloads DESC, created_at ASC
	`, args...)
	if err != nil {
		return nil, err
	}

	result := make([]template.Template, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

func (s *Store) IncrementDownloads(ctx context.Context, id string) (template.Template, error) {
	var row templateRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE templates SET downloads = downloads + 1 WHERE id = $1
		RETURNING `+templateColumns, id)
	if err != nil {
		return template.Template{}, mapErr("template", id, err)
	}
	return row.toDomain()
}
