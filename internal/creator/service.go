package creator

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/zcomx/zcomix/internal/image"
	"github.com/zcomx/zcomix/internal/platform/validate"
	"github.com/zcomx/zcomix/pkg/pagination"
	"github.com/zcomx/zcomix/pkg/pointer"
	"github.com/zcomx/zcomix/pkg/slug"
)

// Image ref owning fields.
const (
	ImageFieldPortrait = "creator.portrait"
	ImageFieldIndicia  = "creator.indicia"
)

// ImageStore ingests uploads and produces derivative images.
type ImageStore interface {
	Store(field, path, filename string) (image.Ref, error)
}

// Enqueuer schedules background jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, command string, args ...string) error
}

// Service orchestrates creator management.
type Service struct {
	repo   Repository
	images ImageStore
	jobs   Enqueuer
	logger *slog.Logger
}

// NewService constructs a new [Service].
func NewService(repo Repository, images ImageStore, jobs Enqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, images: images, jobs: jobs, logger: logger}
}

// # Lookups

// GetCreator resolves a creator by numeric id or slug. Slug resolution is
// case-insensitive and accent-insensitive.
func (service *Service) GetCreator(ctx context.Context, identifier string) (*Creator, error) {
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		return service.repo.GetByID(ctx, id)
	}
	return service.repo.GetBySlug(ctx, identifier)
}

// SearchCreators matches query as a case-insensitive substring of names.
func (service *Service) SearchCreators(ctx context.Context, query string, params pagination.Params) ([]*Creator, int, error) {
	return service.repo.Search(ctx, query, params)
}

// # Management

/*
CreateCreator registers a new cartoonist.

Description: The URL slug is derived from the display name with accents
removed and spacing dropped ("First Last" becomes "FirstLast"). Slug
uniqueness is enforced on the accent-folded, lowercased form, so "Éloïse"
and "eloise" collide.

Parameters:
  - ctx: context.Context
  - c: *Creator

Returns:
  - error: Validation, Conflict on slug collision, or persistence errors
*/
func (service *Service) CreateCreator(ctx context.Context, c *Creator) error {
	validator := &validate.Validator{}
	validator.Required("name", c.Name).MaxLen("name", c.Name, 255)
	if c.Email != "" {
		validator.Email("email", c.Email)
	}
	if c.PaypalEmail != "" {
		validator.Email("paypal_email", c.PaypalEmail)
	}
	if err := validator.Err(); err != nil {
		return err
	}

	if c.Slug == "" {
		c.Slug = slug.Name(c.Name)
	}

	if err := service.repo.Create(ctx, c); err != nil {
		return err
	}

	service.logger.Info("creator_created",
		slog.Int64("creator_id", c.ID),
		slog.String("slug", c.Slug),
	)
	return nil
}

// UpdateCreator applies profile changes. Renames re-derive the slug.
func (service *Service) UpdateCreator(ctx context.Context, c *Creator) error {
	validator := &validate.Validator{}
	validator.Required("name", c.Name).MaxLen("name", c.Name, 255)
	if err := validator.Err(); err != nil {
		return err
	}

	c.Slug = slug.Name(c.Name)
	if err := service.repo.Update(ctx, c); err != nil {
		return err
	}

	service.logger.Info("creator_updated", slog.Int64("creator_id", c.ID))
	return nil
}

// # Images

// SetPortrait ingests a portrait upload. The previous portrait image, if
// any, is scheduled for deletion.
func (service *Service) SetPortrait(ctx context.Context, id int64, path, filename string) (*Creator, error) {
	return service.setImage(ctx, id, path, filename, ImageFieldPortrait)
}

/*
SetIndicia ingests a custom indicia (colophon) image.

Description: Besides storing the image, an update_indicia job is queued so
the indicia pages baked into the creator's released archives are
regenerated on the next worker cycle.
*/
func (service *Service) SetIndicia(ctx context.Context, id int64, path, filename string) (*Creator, error) {
	c, err := service.setImage(ctx, id, path, filename, ImageFieldIndicia)
	if err != nil {
		return nil, err
	}

	err = service.jobs.Enqueue(ctx, "update_indicia", strconv.FormatInt(id, 10))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (service *Service) setImage(ctx context.Context, id int64, path, filename, field string) (*Creator, error) {
	c, err := service.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ref, err := service.images.Store(field, path, filename)
	if err != nil {
		return nil, err
	}
	refString := pointer.To(ref.String())

	var previous *string
	switch field {
	case ImageFieldPortrait:
		previous = c.Portrait
		err = service.repo.SetPortrait(ctx, id, refString)
		c.Portrait = refString
	case ImageFieldIndicia:
		previous = c.Indicia
		err = service.repo.SetIndicia(ctx, id, refString)
		c.Indicia = refString
	}
	if err != nil {
		return nil, err
	}

	if previous != nil {
		if err := service.jobs.Enqueue(ctx, "delete_img", *previous); err != nil {
			return nil, err
		}
	}

	service.logger.Info("creator_image_set",
		slog.Int64("creator_id", id),
		slog.String("field", field),
	)
	return c, nil
}
