package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"gesture-quiz-service/internal/domain"
)

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts"`

	ID            string    `bun:"id,pk"`
	QuizID        string    `bun:"quiz_id,notnull"`
	ParticipantID string    `bun:"participant_id,notnull"`
	Answers       string    `bun:"answers,type:jsonb,notnull"`
	Score         int       `bun:"score,notnull"`
	MaxScore      int       `bun:"max_score,notnull"`
	CompletedAt   time.Time `bun:"completed_at,notnull"`
}

// AttemptStore persists finalized attempts in the quiz_attempts table.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) SaveAttempt(ctx context.Context, attempt domain.Attempt) error {
	answers, err := domain.EncodeAnswers(attempt.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	row := attemptRow{
		ID:            attempt.ID,
		QuizID:        attempt.QuizID,
		ParticipantID: attempt.ParticipantID,
		Answers:       string(answers),
		Score:         attempt.Score,
		MaxScore:      attempt.MaxScore,
		CompletedAt:   attempt.CompletedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	var row attemptRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", attemptID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("select attempt: %w", err)
	}
	return row.toDomain()
}

// ListAttempts returns matching attempts, newest first.
func (s *AttemptStore) ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	var rows []attemptRow
	q := s.db.NewSelect().Model(&rows).Order("completed_at DESC", "id")
	if filter.ParticipantID != "" {
		q = q.Where("participant_id = ?", filter.ParticipantID)
	}
	if filter.QuizID != "" {
		q = q.Where("quiz_id = ?", filter.QuizID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.Attempt, 0, len(rows))
	for _, row := range rows {
		attempt, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, attempt)
	}
	return out, nil
}

func (r attemptRow) toDomain() (domain.Attempt, error) {
	answers, err := domain.DecodeAnswers([]byte(r.Answers))
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("decode answers for %s: %w", r.ID, err)
	}
	return domain.Attempt{
		ID:            r.ID,
		QuizID:        r.QuizID,
		ParticipantID: r.ParticipantID,
		Answers:       answers,
		Score:         r.Score,
		MaxScore:      r.MaxScore,
		CompletedAt:   r.CompletedAt,
	}, nil
}
