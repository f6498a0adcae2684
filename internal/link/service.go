package link

import (
	"context"
	"log/slog"

	"github.com/zcomx/zcomix/internal/platform/validate"
)

// Service orchestrates link management for books and creators.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// AttachLink canonicalises the URL and appends the link to the owner's
// ordered list.
func (service *Service) AttachLink(ctx context.Context, owner OwnerKind, ownerID int64, l *Link) error {
	canonical, err := Canonicalize(l.URL)
	if err != nil {
		return err
	}
	l.URL = canonical

	validator := &validate.Validator{}
	validator.Required("text", l.Text).MaxLen("text", l.Text, 255)
	validator.MaxLen("title", l.Title, 255)
	if err := validator.Err(); err != nil {
		return err
	}

	if err := service.repo.Attach(ctx, owner, ownerID, l); err != nil {
		return err
	}

	service.logger.Info("link_attached",
		slog.String("owner", string(owner)),
		slog.Int64("owner_id", ownerID),
		slog.Int64("link_id", l.ID),
	)
	return nil
}

// DetachLink removes a link and closes the ordering gap.
func (service *Service) DetachLink(ctx context.Context, owner OwnerKind, ownerID, linkID int64) error {
	return service.repo.Detach(ctx, owner, ownerID, linkID)
}

// ListLinks returns the owner's links in display order.
func (service *Service) ListLinks(ctx context.Context, owner OwnerKind, ownerID int64) ([]*Link, error) {
	return service.repo.ListByOwner(ctx, owner, ownerID)
}

// ReorderLinks assigns display order 1..N following orderedIDs.
func (service *Service) ReorderLinks(ctx context.Context, owner OwnerKind, ownerID int64, orderedIDs []int64) error {
	return service.repo.Reorder(ctx, owner, ownerID, orderedIDs)
}
