package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore implements Store over a modernc.org/sqlite handle owned by the caller.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore constructs a SQLiteStore over a migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("todo: nil db")
	}
	return &SQLiteStore{db: db}, nil
}

func nowMillis() int64 { return time.Now().UTC().UnixMilli() }

// Create inserts an item owned by ownerID.
func (s *SQLiteStore) Create(ctx context.Context, ownerID int64, in Input) (Item, error) {
	const op = "todo.Create"

	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	now := nowMillis()
	var it Item
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO tasks (owner_id, description, due_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id, owner_id, description, due_date`,
		ownerID, in.Description, in.DueDate, now, now,
	).Scan(&it.ID, &it.OwnerID, &it.Description, &it.DueDate)
	if err != nil {
		return Item{}, fmt.Errorf("%s: %w", op, err)
	}
	return it, nil
}

// ListByOwner returns ownerID's items ordered by id.
func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID int64) ([]Item, error) {
	const op = "todo.ListByOwner"

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, description, due_date FROM tasks WHERE owner_id = ? ORDER BY id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OwnerID, &it.Description, &it.DueDate); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// Get returns the item if callerID owns it.
func (s *SQLiteStore) Get(ctx context.Context, id, callerID int64) (Item, error) {
	return s.inTx(ctx, "todo.Get", id, func(tx *sql.Tx) *sql.Row {
		return tx.QueryRowContext(ctx,
			`SELECT id, owner_id, description, due_date FROM tasks WHERE id = ? AND owner_id = ?`,
			id, callerID,
		)
	})
}

// Update rewrites description and due date if callerID owns the item.
func (s *SQLiteStore) Update(ctx context.Context, id, callerID int64, in Input) (Item, error) {
	return s.inTx(ctx, "todo.Update", id, func(tx *sql.Tx) *sql.Row {
		return tx.QueryRowContext(ctx,
			`UPDATE tasks SET description = ?, due_date = ?, updated_at = ?
			  WHERE id = ? AND owner_id = ?
			 RETURNING id, owner_id, description, due_date`,
			in.Description, in.DueDate, nowMillis(), id, callerID,
		)
	})
}

// Delete removes the item if callerID owns it.
func (s *SQLiteStore) Delete(ctx context.Context, id, callerID int64) (Item, error) {
	return s.inTx(ctx, "todo.Delete", id, func(tx *sql.Tx) *sql.Row {
		return tx.QueryRowContext(ctx,
			`DELETE FROM tasks WHERE id = ? AND owner_id = ?
			 RETURNING id, owner_id, description, due_date`,
			id, callerID,
		)
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, op string, id int64, stmt func(*sql.Tx) *sql.Row) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Item{}, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	var it Item
	err = stmt(tx).Scan(&it.ID, &it.OwnerID, &it.Description, &it.DueDate)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Item{}, fmt.Errorf("%s: %w", op, err)
		}
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM tasks WHERE id = ?)`, id,
		).Scan(&exists); err != nil {
			return Item{}, fmt.Errorf("%s: existence check: %w", op, err)
		}
		if exists {
			return Item{}, ErrForbidden
		}
		return Item{}, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return Item{}, fmt.Errorf("%s: commit: %w", op, err)
	}
	return it, nil
}
