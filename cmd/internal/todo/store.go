package todo

import "context"

// Store persists items. Get, Update and Delete take the caller's account id and
// return ErrNotFound for a missing id or ErrForbidden for someone else's item.
type Store interface {
	Create(ctx context.Context, ownerID int64, in Input) (Item, error)
	// ListByOwner returns the owner's items by ascending id; never nil.
	ListByOwner(ctx context.Context, ownerID int64) ([]Item, error)
	Get(ctx context.Context, id, callerID int64) (Item, error)
	// Update changes only Description and DueDate.
	Update(ctx context.Context, id, callerID int64, in Input) (Item, error)
	// Delete removes the item and returns it as it was.
	Delete(ctx context.Context, id, callerID int64) (Item, error)
}
