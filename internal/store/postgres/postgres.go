// Package postgres implements store.Store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/zhe.chen/storyweaver/internal/store"
	"github.com/zhe.chen/storyweaver/pkg/types"
)

const uniqueViolation = "23505"

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	db *sql.DB
}

// Open connects, verifies the connection and applies migrations.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const storyColumns = `id, title, original_text, input_language, output_language, status,
		summary, audio_ref, video_ref, failure_reason, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStory(row rowScanner, id string) (*types.Story, error) {
	var st types.Story
	err := row.Scan(&st.ID, &st.Title, &st.Text, &st.InputLanguage, &st.OutputLanguage, &st.Status,
		&st.Summary, &st.AudioRef, &st.VideoRef, &st.FailureReason, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read story: %w", err)
	}
	return &st, nil
}

// CreateStory inserts a new story row.
func (s *Store) CreateStory(ctx context.Context, story *types.Story) error {
	query := `
		INSERT INTO stories (` + storyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		story.ID,
		story.Title,
		story.Text,
		story.InputLanguage,
		story.OutputLanguage,
		story.Status,
		story.Summary,
		story.AudioRef,
		story.VideoRef,
		story.FailureReason,
		story.CreatedAt,
		story.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert story: %w", err)
	}
	return nil
}

// GetStory reads one story by id.
func (s *Store) GetStory(ctx context.Context, id string) (*types.Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`
	return scanStory(s.db.QueryRowContext(ctx, query, id), id)
}

// UpdateStory locks the row, applies update with the status machine's
// rules and writes it back in one transaction.
func (s *Store) UpdateStory(ctx context.Context, id string, update types.StoryUpdate) (*types.Story, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = $1 FOR UPDATE`
	story, err := scanStory(tx.QueryRowContext(ctx, query, id), id)
	if err != nil {
		return nil, err
	}

	if err := update.ApplyTo(story); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE stories
		SET status = $2, summary = $3, audio_ref = $4, video_ref = $5, failure_reason = $6, updated_at = $7
		WHERE id = $1
	`,
		story.ID,
		story.Status,
		story.Summary,
		story.AudioRef,
		story.VideoRef,
		story.FailureReason,
		story.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update story: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit story update: %w", err)
	}
	return story, nil
}

// CreateScene inserts a scene row. A reused ordinal maps to
// store.ErrDuplicateScene and an unknown story to store.ErrNotFound.
func (s *Store) CreateScene(ctx context.Context, scene *types.Scene) error {
	query := `
		INSERT INTO scenes (id, story_id, ordinal, description, image_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		scene.ID,
		scene.StoryID,
		scene.Ordinal,
		scene.Description,
		scene.ImageRef,
		scene.CreatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: story %s scene %d", store.ErrDuplicateScene, scene.StoryID, scene.Ordinal)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", store.ErrNotFound, scene.StoryID)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to insert scene: %w", err)
	}
	return nil
}

// ListScenes returns a story's scenes by ordinal.
func (s *Store) ListScenes(ctx context.Context, storyID string) ([]types.Scene, error) {
	query := `
		SELECT id, story_id, ordinal, description, image_ref, created_at
		FROM scenes WHERE story_id = $1 ORDER BY ordinal
	`
	rows, err := s.db.QueryContext(ctx, query, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	defer rows.Close()

	var scenes []types.Scene
	for rows.Next() {
		var sc types.Scene
		if err := rows.Scan(&sc.ID, &sc.StoryID, &sc.Ordinal, &sc.Description, &sc.ImageRef, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scene: %w", err)
		}
		scenes = append(scenes, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	return scenes, nil
}

var _ store.Store = (*Store)(nil)
