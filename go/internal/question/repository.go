package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no question exists for the requested id.
var ErrNotFound = errors.New("question not found")

// Repository provides read-only lookup of question data.
type Repository interface {
	GetQuestionByID(ctx context.Context, id string) (*Question, error)
}

// FileRepository reads question documents from a directory of JSON objects,
// one questions/<id>.json file per question.
type FileRepository struct {
	baseDir string
}

func NewFileRepository(baseDir string) *FileRepository {
	return &FileRepository{baseDir: baseDir}
}

func (r *FileRepository) GetQuestionByID(ctx context.Context, id string) (*Question, error) {
	// The id is caller-supplied; Base keeps lookups inside the questions dir.
	path := filepath.Join(r.baseDir, "questions", filepath.Base(id)+".json")

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read question %s: %w", id, err)
	}

	var q Question
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("failed to parse question %s: %w", id, err)
	}

	log.Debug().
		Str("question_id", q.ID).
		Str("category", q.Category).
		Str("difficulty", q.Difficulty).
		Msg("question loaded")

	return &q, nil
}
