package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/zhe.chen/storyweaver/internal/store"
	"github.com/zhe.chen/storyweaver/pkg/types"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Store{db: db}, mock
}

var storyCols = []string{
	"id", "title", "original_text", "input_language", "output_language", "status",
	"summary", "audio_ref", "video_ref", "failure_reason", "created_at", "updated_at",
}

func storyRow(id string, status types.StoryStatus, summary string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(storyCols).AddRow(
		id, "Tale", "Once upon a time", "en", "fr", string(status),
		summary, "", "", "", now, now,
	)
}

func TestCreateStory(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	story, _ := store.NewStory("Tale", "Once upon a time", "en", "fr")

	mock.ExpectExec(`INSERT INTO stories`).
		WithArgs(story.ID, "Tale", "Once upon a time", "en", "fr", types.StoryPending,
			"", "", "", "", story.CreatedAt, story.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.CreateStory(context.Background(), story); err != nil {
		t.Fatalf("CreateStory failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetStory_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT .* FROM stories WHERE id = \$1`).
		WithArgs("s1").
		WillReturnRows(storyRow("s1", types.StoryGeneratingImages, "A summary"))

	story, err := s.GetStory(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetStory failed: %v", err)
	}
	if story.Status != types.StoryGeneratingImages || story.Summary != "A summary" || story.OutputLanguage != "fr" {
		t.Errorf("story = %+v", story)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetStory_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT .* FROM stories WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetStory(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want store.ErrNotFound", err)
	}
}

func TestUpdateStory_Advances(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM stories WHERE id = \$1 FOR UPDATE`).
		WithArgs("s1").
		WillReturnRows(storyRow("s1", types.StorySummarizing, ""))
	mock.ExpectExec(`UPDATE stories`).
		WithArgs("s1", types.StoryGeneratingAudio, "A summary", "", "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	next := types.StoryGeneratingAudio
	summary := "A summary"
	story, err := s.UpdateStory(context.Background(), "s1", types.StoryUpdate{Status: &next, Summary: &summary})
	if err != nil {
		t.Fatalf("UpdateStory failed: %v", err)
	}
	if story.Status != types.StoryGeneratingAudio {
		t.Errorf("status = %s", story.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpdateStory_RejectsBackwardsMove(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM stories WHERE id = \$1 FOR UPDATE`).
		WithArgs("s1").
		WillReturnRows(storyRow("s1", types.StoryCompleted, "A summary"))
	mock.ExpectRollback()

	back := types.StorySummarizing
	_, err := s.UpdateStory(context.Background(), "s1", types.StoryUpdate{Status: &back})
	if !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateScene_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate ordinal", &pq.Error{Code: "23505"}, store.ErrDuplicateScene},
		{"unknown story", &pq.Error{Code: "23503"}, store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			defer s.db.Close()

			scene := store.NewScene("s1", 2, "A storm", "/generated/scene_2_1.png")
			mock.ExpectExec(`INSERT INTO scenes`).
				WithArgs(scene.ID, "s1", 2, "A storm", "/generated/scene_2_1.png", scene.CreatedAt).
				WillReturnError(tt.err)

			if err := s.CreateScene(context.Background(), scene); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateScene_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	scene := store.NewScene("s1", 1, "Dawn", "/generated/scene_1_1.png")
	mock.ExpectExec(`INSERT INTO scenes`).
		WithArgs(scene.ID, "s1", 1, "Dawn", "/generated/scene_1_1.png", scene.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.CreateScene(context.Background(), scene); err != nil {
		t.Fatalf("CreateScene failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestListScenes(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, story_id, ordinal, description, image_ref, created_at\s+FROM scenes WHERE story_id = \$1 ORDER BY ordinal`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "story_id", "ordinal", "description", "image_ref", "created_at"}).
			AddRow("a", "s1", 1, "Dawn", "/generated/scene_1_1.png", now).
			AddRow("b", "s1", 2, "Dusk", "/generated/scene_2_2.png", now))

	scenes, err := s.ListScenes(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ListScenes failed: %v", err)
	}
	if len(scenes) != 2 || scenes[1].Description != "Dusk" || scenes[1].Ordinal != 2 {
		t.Errorf("scenes = %+v", scenes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
