package todo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL. The pool is owned by the caller.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

var _ Store = (*PostgresStore)(nil)

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the schema holding the tasks table (default "public").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("todo: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "public"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("todo: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) tasks() string {
	return pgx.Identifier{s.schema, "tasks"}.Sanitize()
}

// Create inserts an item owned by ownerID.
func (s *PostgresStore) Create(ctx context.Context, ownerID int64, in Input) (Item, error) {
	const op = "todo.Create"

	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	now := time.Now().UTC()
	var it Item
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.tasks()+` (owner_id, description, due_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 RETURNING id, owner_id, description, due_date`,
		ownerID, in.Description, in.DueDate, now,
	).Scan(&it.ID, &it.OwnerID, &it.Description, &it.DueDate)
	if err != nil {
		return Item{}, fmt.Errorf("%s: %w", op, err)
	}
	return it, nil
}

// ListByOwner returns ownerID's items ordered by id.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID int64) ([]Item, error) {
	const op = "todo.ListByOwner"

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, description, due_date
		   FROM `+s.tasks()+`
		  WHERE owner_id = $1
		  ORDER BY id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.ID, &it.OwnerID, &it.Description, &it.DueDate)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Get returns the item if callerID owns it.
func (s *PostgresStore) Get(ctx context.Context, id, callerID int64) (Item, error) {
	return s.inTx(ctx, "todo.Get", id, func(tx pgx.Tx) pgx.Row {
		return tx.QueryRow(ctx,
			`SELECT id, owner_id, description, due_date
			   FROM `+s.tasks()+`
			  WHERE id = $1 AND owner_id = $2`,
			id, callerID,
		)
	})
}

// Update rewrites description and due date if callerID owns the item.
func (s *PostgresStore) Update(ctx context.Context, id, callerID int64, in Input) (Item, error) {
	return s.inTx(ctx, "todo.Update", id, func(tx pgx.Tx) pgx.Row {
		return tx.QueryRow(ctx,
			`UPDATE `+s.tasks()+`
			    SET description = $3, due_date = $4, updated_at = $5
			  WHERE id = $1 AND owner_id = $2
			 RETURNING id, owner_id, description, due_date`,
			id, callerID, in.Description, in.DueDate, time.Now().UTC(),
		)
	})
}

// Delete removes the item if callerID owns it.
func (s *PostgresStore) Delete(ctx context.Context, id, callerID int64) (Item, error) {
	return s.inTx(ctx, "todo.Delete", id, func(tx pgx.Tx) pgx.Row {
		return tx.QueryRow(ctx,
			`DELETE FROM `+s.tasks()+`
			  WHERE id = $1 AND owner_id = $2
			 RETURNING id, owner_id, description, due_date`,
			id, callerID,
		)
	})
}

// inTx runs an ownership-filtered statement. When it matches nothing, a second
// lookup in the same transaction tells a missing id from a foreign one.
func (s *PostgresStore) inTx(ctx context.Context, op string, id int64, stmt func(pgx.Tx) pgx.Row) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return Item{}, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var it Item
	err = stmt(tx).Scan(&it.ID, &it.OwnerID, &it.Description, &it.DueDate)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return Item{}, fmt.Errorf("%s: %w", op, err)
		}
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM `+s.tasks()+` WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return Item{}, fmt.Errorf("%s: existence check: %w", op, err)
		}
		if exists {
			return Item{}, ErrForbidden
		}
		return Item{}, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return Item{}, fmt.Errorf("%s: commit: %w", op, err)
	}
	return it, nil
}
