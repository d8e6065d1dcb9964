package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"infometis/internal/api"
)

// StackStore implements store.StackStore backed by SQLite. The whole
// deployment record is kept as JSON; the other columns exist for queries.
type StackStore struct {
	DB *sql.DB
}

// NewStackStore opens the database at path and returns a store over it.
func NewStackStore(path string) (*StackStore, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &StackStore{DB: db}, nil
}

func (s *StackStore) Save(ctx context.Context, stack *api.StackDeployment) error {
	body, err := json.Marshal(stack)
	if err != nil {
		return fmt.Errorf("marshal stack: %w", err)
	}

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO stacks (id, name, cluster, status, deployed_at, body)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   cluster = excluded.cluster,
		   status = excluded.status,
		   deployed_at = excluded.deployed_at,
		   body = excluded.body`,
		stack.ID, stack.Name, stack.Cluster, string(stack.Status),
		stack.DeployedAt.UTC().Format(time.RFC3339Nano), string(body),
	)
	if err != nil {
		return fmt.Errorf("upsert stack: %w", err)
	}
	return nil
}

func (s *StackStore) Get(ctx context.Context, id string) (*api.StackDeployment, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT body FROM stacks WHERE id = ?`, id)
	stack, err := scanStack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &api.StackNotFoundError{ID: id}
	}
	return stack, err
}

func (s *StackStore) List(ctx context.Context) ([]*api.StackDeployment, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT body FROM stacks ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list stacks: %w", err)
	}
	defer rows.Close()

	var stacks []*api.StackDeployment
	for rows.Next() {
		stack, err := scanStack(rows)
		if err != nil {
			return nil, err
		}
		stacks = append(stacks, stack)
	}
	return stacks, rows.Err()
}

func (s *StackStore) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM stacks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete stack: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete stack: %w", err)
	}
	if n == 0 {
		return &api.StackNotFoundError{ID: id}
	}
	return nil
}

func (s *StackStore) Close() error {
	return s.DB.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStack(row scanner) (*api.StackDeployment, error) {
	var body string
	if err := row.Scan(&body); err != nil {
		return nil, err
	}
	var stack api.StackDeployment
	if err := json.Unmarshal([]byte(body), &stack); err != nil {
		return nil, fmt.Errorf("unmarshal stack: %w", err)
	}
	return &stack, nil
}
