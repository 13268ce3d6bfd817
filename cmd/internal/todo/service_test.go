package todo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestService_ValidatesInput(t *testing.T) {
	f := newSQLiteFixture(t)
	svc, err := NewService(f.store, quietLog())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Create(ctx, f.alice, Input{Description: strings.Repeat("x", maxDescriptionLen+1)})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, f.alice, Input{DueDate: strings.Repeat("9", maxDueDateLen+1)})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, f.alice, Input{Description: "bad \xff utf8"})
	require.ErrorIs(t, err, ErrInvalidInput)

	items, err := svc.List(ctx, f.alice)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestService_RoundTrip(t *testing.T) {
	f := newSQLiteFixture(t)
	svc, err := NewService(f.store, quietLog())
	require.NoError(t, err)
	ctx := context.Background()

	in := Input{Description: "ship it", DueDate: "friday"}
	it, err := svc.Create(ctx, f.alice, in)
	require.NoError(t, err)

	got, err := svc.Get(ctx, it.ID, f.alice)
	require.NoError(t, err)
	assert.Equal(t, in.Description, got.Description)
	assert.Equal(t, in.DueDate, got.DueDate)

	_, err = svc.Get(ctx, it.ID, f.bob)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestService_HidesStoreErrors(t *testing.T) {
	svc, err := NewService(brokenStore{}, quietLog())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Create(ctx, 1, Input{})
	require.ErrorIs(t, err, ErrInternal)
	_, err = svc.List(ctx, 1)
	require.ErrorIs(t, err, ErrInternal)
	_, err = svc.Get(ctx, 1, 1)
	require.ErrorIs(t, err, ErrInternal)
	_, err = svc.Update(ctx, 1, 1, Input{})
	require.ErrorIs(t, err, ErrInternal)
	_, err = svc.Delete(ctx, 1, 1)
	require.ErrorIs(t, err, ErrInternal)
}

func TestNewService_NilStore(t *testing.T) {
	_, err := NewService(nil, nil)
	require.Error(t, err)
}

type brokenStore struct{}

var errBroken = errors.New("connection reset by peer")

func (brokenStore) Create(context.Context, int64, Input) (Item, error) { return Item{}, errBroken }
func (brokenStore) ListByOwner(context.Context, int64) ([]Item, error) { return nil, errBroken }
func (brokenStore) Get(context.Context, int64, int64) (Item, error)    { return Item{}, errBroken }
func (brokenStore) Update(context.Context, int64, int64, Input) (Item, error) {
	return Item{}, errBroken
}
func (brokenStore) Delete(context.Context, int64, int64) (Item, error) { return Item{}, errBroken }
