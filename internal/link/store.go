package link

import "context"

// Repository is the data-access boundary for links and their ordered
// associations.
type Repository interface {
	// Attach creates the link and appends it to the owner's ordered list.
	Attach(ctx context.Context, owner OwnerKind, ownerID int64, l *Link) error
	// Detach removes the association and the link row, closing the order gap.
	Detach(ctx context.Context, owner OwnerKind, ownerID, linkID int64) error
	// ListByOwner returns the owner's links in display order.
	ListByOwner(ctx context.Context, owner OwnerKind, ownerID int64) ([]*Link, error)
	// Reorder assigns order 1..N following orderedIDs.
	Reorder(ctx context.Context, owner OwnerKind, ownerID int64, orderedIDs []int64) error
	Update(ctx context.Context, l *Link) error
}
