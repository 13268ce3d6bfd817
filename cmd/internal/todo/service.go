package todo

import (
	"context"
	"errors"
	"log/slog"
)

// Service validates input and narrows store errors to the package sentinels.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService wraps store.
func NewService(store Store, log *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("todo: nil store")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}, nil
}

// Create adds an item owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID int64, in Input) (Item, error) {
	if err := in.Validate(); err != nil {
		return Item{}, err
	}
	it, err := s.store.Create(ctx, ownerID, in)
	return it, s.mapErr("todo.create", err)
}

// List returns every item ownerID owns, possibly none.
func (s *Service) List(ctx context.Context, ownerID int64) ([]Item, error) {
	items, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, s.mapErr("todo.list", err)
	}
	return items, nil
}

// Get returns one item owned by callerID.
func (s *Service) Get(ctx context.Context, id, callerID int64) (Item, error) {
	it, err := s.store.Get(ctx, id, callerID)
	return it, s.mapErr("todo.get", err)
}

// Update replaces description and due date of an item owned by callerID.
func (s *Service) Update(ctx context.Context, id, callerID int64, in Input) (Item, error) {
	if err := in.Validate(); err != nil {
		return Item{}, err
	}
	it, err := s.store.Update(ctx, id, callerID, in)
	return it, s.mapErr("todo.update", err)
}

// Delete removes an item owned by callerID and returns it.
func (s *Service) Delete(ctx context.Context, id, callerID int64) (Item, error) {
	it, err := s.store.Delete(ctx, id, callerID)
	return it, s.mapErr("todo.delete", err)
}

func (s *Service) mapErr(event string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden), errors.Is(err, ErrInvalidInput):
		return err
	default:
		s.log.Error(event+".fail", "err", err)
		return ErrInternal
	}
}
