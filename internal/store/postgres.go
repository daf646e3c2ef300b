package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"jester-bot/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConnectionError struct {
	Host string
	Port int
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to database at %s:%d: %v", e.Host, e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Postgres keeps the tree in a single tree_nodes (path, value jsonb) table;
// cmd/migrator owns the schema.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, &ConnectionError{
			Host: cfg.Host,
			Port: cfg.Port,
			Err:  err,
		}
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, &ConnectionError{
			Host: cfg.Host,
			Port: cfg.Port,
			Err:  err,
		}
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Get(ctx context.Context, path string) (json.RawMessage, error) {
	var value json.RawMessage
	err := p.pool.QueryRow(ctx,
		"SELECT value FROM tree_nodes WHERE path = $1", path,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, unavailable("get", path, err)
	}
	return value, nil
}

func (p *Postgres) Children(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	prefix := path + "/"
	rows, err := p.pool.Query(ctx,
		"SELECT path, value FROM tree_nodes WHERE path LIKE $1", prefix+"%",
	)
	if err != nil {
		return nil, unavailable("children", path, err)
	}
	defer rows.Close()

	children := make(map[string]json.RawMessage)
	for rows.Next() {
		var nodePath string
		var value json.RawMessage
		if err := rows.Scan(&nodePath, &value); err != nil {
			return nil, unavailable("children", path, err)
		}
		key := strings.TrimPrefix(nodePath, prefix)
		if strings.Contains(key, "/") {
			continue
		}
		children[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("children", path, err)
	}
	return children, nil
}

func (p *Postgres) Set(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %q: %w", path, err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO tree_nodes (path, value)
		VALUES ($1, $2)
		ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, path, data)
	if err != nil {
		return unavailable("set", path, err)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, path string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields for %q: %w", path, err)
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE tree_nodes SET value = value || $2::jsonb, updated_at = now()
		WHERE path = $1
	`, path, data)
	if err != nil {
		return unavailable("update", path, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %q: %w", path, ErrNotFound)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, path string) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM tree_nodes WHERE path = $1", path)
	if err != nil {
		return unavailable("delete", path, err)
	}
	return nil
}

func (p *Postgres) Push(ctx context.Context, path string, value any) (string, error) {
	key := newKey()
	if err := p.Set(ctx, path+"/"+key, value); err != nil {
		return "", err
	}
	return key, nil
}
