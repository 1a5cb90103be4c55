package templates

import (
	"context"
	"fmt"
	"strings"

	"github.com/R3E-Network/framestore/internal/app/domain/template"
	"github.com/R3E-Network/framestore/internal/app/storage"
	"github.com/R3E-Network/framestore/internal/errors"
	"github.com/R3E-Network/framestore/manifest"
	"github.com/R3E-Network/framestore/pkg/logger"
)

const maxTags = 10

// CreateInput describes a template submission.
type CreateInput struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Category     string             `json:"category"`
	Tags         []string           `json:"tags"`
	PreviewImage string             `json:"preview_image"`
	Manifest     *manifest.Manifest `json:"template_data"`
	IsPublic     *bool              `json:"is_public"`
	PriceCents   int                `json:"price_cents"`
}

// Service manages the template marketplace.
type Service struct {
	store storage.TemplateStore
	log   *logger.Logger
}

// New constructs a template service.
func New(store storage.TemplateStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("templates")
	}
	return &Service{store: store, log: log}
}

// Create publishes a template owned by creatorID. Templates are public
// unless IsPublic is explicitly false.
func (s *Service) Create(ctx context.Context, creatorID string, in CreateInput) (template.Template, error) {
	if strings.TrimSpace(creatorID) == "" {
		return template.Template{}, errors.Unauthorized("")
	}
	name := strings.TrimSpace(in.Name)
	category := strings.ToLower(strings.TrimSpace(in.Category))
	preview := strings.TrimSpace(in.PreviewImage)

	if name == "" {
		return template.Template{}, errors.BadRequest("name is required")
	}
	if category == "" {
		return template.Template{}, errors.BadRequest("category is required")
	}
	if preview != "" && !manifest.IsValidURL(preview) {
		return template.Template{}, errors.InvalidFormat("preview_image", "must be an http(s) URL")
	}
	if in.PriceCents < 0 {
		return template.Template{}, errors.InvalidFormat("price_cents", "must not be negative")
	}
	if in.Manifest == nil {
		return template.Template{}, errors.BadRequest("template_data is required")
	}
	if result := in.Manifest.Validate(); !result.IsValid {
		return template.Template{}, errors.InvalidManifest(result.Errors)
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return template.Template{}, err
	}
	public := true
	if in.IsPublic != nil {
		public = *in.IsPublic
	}

	t, err := s.store.CreateTemplate(ctx, template.Template{
		CreatorID:    creatorID,
		Name:         name,
		Description:  strings.TrimSpace(in.Description),
		Category:     category,
		Tags:         tags,
		PreviewImage: preview,
		Manifest:     *in.Manifest.Clone(),
		IsPublic:     public,
		PriceCents:   in.PriceCents,
	})
	if err != nil {
		return template.Template{}, fmt.Errorf("create template: %w", err)
	}
	s.log.WithField("template_id", t.ID).
		WithField("creator_id", creatorID).
		WithField("category", category).
		Info("template created")
	return t, nil
}

func normalizeTags(in []string) ([]string, error) {
	tags := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, tag := range in {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	if len(tags) > maxTags {
		return nil, errors.InvalidFormat("tags", fmt.Sprintf("at most %d tags are allowed", maxTags))
	}
	return tags, nil
}

// List returns public templates matching filter, most downloaded first.
func (s *Service) List(ctx context.Context, filter template.Filter) ([]template.Template, error) {
	filter.Category = strings.ToLower(strings.TrimSpace(filter.Category))
	list, err := s.store.ListTemplates(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	if list == nil {
		list = []template.Template{}
	}
	return list, nil
}

// Get returns a template. Private templates are only visible to their
// creator.
func (s *Service) Get(ctx context.Context, userID, id string) (template.Template, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return template.Template{}, fmt.Errorf("get template: %w", err)
	}
	if !t.IsPublic && t.CreatorID != userID {
		return template.Template{}, errors.NotFound("template", id)
	}
	return t, nil
}

// Use counts a download and returns a copy of the template's manifest for
// the caller to start a frame from.
func (s *Service) Use(ctx context.Context, userID, id string) (*manifest.Manifest, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	t, err := s.store.IncrementDownloads(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count template download: %w", err)
	}
	s.log.WithField("template_id", id).WithField("downloads", t.Downloads).Debug("template used")
	return t.Manifest.Clone(), nil
}
