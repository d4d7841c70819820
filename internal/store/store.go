package store

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store bundles hand-written queries over the shared connection pool. Consumers
// depend on narrow interfaces; Store satisfies all of them.
type Store struct {
	Pool *pgxpool.Pool
}

// New constructs a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
