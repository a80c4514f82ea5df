package storage

// sqlite.go — almacenamiento clave-valor mínimo.
//
// Estrategia:
//   - `kv`: una fila por blob (órdenes, audit log). UPSERT en cada escritura.
//   - Los blobs llevan su propia versión (ver codec.go); la tabla no sabe nada
//     de su contenido.
//   - Un único writer: SQLite serializa igualmente y así evitamos SQLITE_BUSY.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      BLOB     NOT NULL,
    updated_at DATETIME NOT NULL
);
`

// ErrNotFound is returned by Get for a key that was never written.
var ErrNotFound = errors.New("storage: key not found")

// SQLiteKV implementa ports.KVStore usando SQLite (pure Go, sin CGo).
type SQLiteKV struct {
	db *sql.DB
}

// NewSQLiteKV abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteKV(path string) (*SQLiteKV, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteKV: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteKV: apply schema: %w", err)
	}
	return &SQLiteKV{db: db}, nil
}

// Get devuelve el blob guardado bajo key, o ErrNotFound.
func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage.Get %q: %w", key, err)
	}
	return value, nil
}

// Put reemplaza el blob guardado bajo key.
func (s *SQLiteKV) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("storage.Put %q: %w", key, err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
