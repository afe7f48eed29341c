package formadmin

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the part of a pgx connection pool the Postgres store and health
// checks use. *pgxpool.Pool satisfies it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// Store persists records of registered models.
type Store interface {
	// Load returns a NotFound AdminError when no record has the identifier.
	Load(ctx context.Context, model *Model, id string) (*Entity, error)
	// Save inserts unpersisted records and updates persisted ones. A rejected
	// record leaves the entity unpersisted and returns a validation AdminError.
	Save(ctx context.Context, model *Model, entity *Entity) error
	Delete(ctx context.Context, model *Model, entity *Entity) error

	Count(ctx context.Context, model *Model) (int64, error)
	Find(ctx context.Context, model *Model, query ListQuery) (*ListResult, error)
}

// FileStore holds uploaded files addressed by path.
type FileStore interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	// Remove deletes the file when it exists and may be deleted; otherwise it
	// does nothing. It never reports a missing or protected file as an error.
	Remove(ctx context.Context, path string) error
}

// UploadedFile is a file submitted with an edit form.
type UploadedFile interface {
	IsPresent() bool
	GenerateStoredName(userID string) string
	MoveTo(ctx context.Context, files FileStore, dest string) error
}
