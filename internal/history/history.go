// Package history is the append-only conversation log. The retrieval
// path only ever appends to it.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"book-rag/internal/config"
)

// Turn is one conversation entry for a user.
type Turn struct {
	bun.BaseModel `bun:"table:chat_history,alias:h"`
	ID            string    `bun:"id,pk" json:"id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	Role          string    `bun:"role,notnull" json:"role"`
	Content       string    `bun:"content,notnull" json:"content"`
	Timestamp     time.Time `bun:"timestamp,notnull" json:"timestamp"`
}

func ConnectDB(dbConfig *config.DatabaseConfig) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dbConfig.DSN),
		pgdriver.WithPassword(dbConfig.Password),
	))
	db := bun.NewDB(sqldb, pgdialect.New())
	if dbConfig.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*Turn)(nil)).IfNotExists().Exec(ctx)
	return err
}

type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Append records one turn. Each turn gets its own UUID so entries stay
// unique even when content repeats.
func (s *Store) Append(ctx context.Context, userID, role, content string) error {
	turn := &Turn{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	_, err := s.db.NewInsert().Model(turn).Exec(ctx)
	return err
}

// Recent returns the last n turns for a user in chronological order.
func (s *Store) Recent(ctx context.Context, userID string, n int) ([]Turn, error) {
	var turns []Turn
	err := s.db.NewSelect().
		Model(&turns).
		Where("user_id = ?", userID).
		OrderExpr("timestamp DESC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	// reverse to chronological
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
