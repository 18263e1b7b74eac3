// Package question persists the shared question bank. Questions are
// read-mostly and reused across interviews matching the same
// category/difficulty/topic, which is what makes hybrid generation cheap.
package question

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepwise/prepwise/internal/domain"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// FindMatching returns bank questions matching category, difficulty and
// language whose tested concepts mention the topic.
func (s *Store) FindMatching(ctx context.Context, category domain.Category, difficulty domain.Difficulty, language, topic string, limit int) ([]domain.Question, error) {
	const stmt = `
SELECT question_id, text, category, difficulty, language, model_answer,
       time_limit, time_limit_seconds, complexity_time, complexity_space,
       hints, concepts_tested, common_mistakes, interviewer_expectations, follow_up_questions,
       create_time
FROM questions
WHERE category = $1 AND difficulty = $2 AND language = $3 AND $4 = ANY(concepts_tested)
ORDER BY create_time DESC
LIMIT $5;`

	rows, err := s.db.Query(ctx, stmt, category, difficulty, language, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}

	questions, err := pgx.CollectRows(rows, scanQuestion)
	if err != nil {
		return nil, fmt.Errorf("collect questions: %w", err)
	}

	return questions, nil
}

func (s *Store) Insert(ctx context.Context, qs []domain.Question) (err error) {
	if len(qs) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const stmt = `
INSERT INTO questions (question_id, text, category, difficulty, language, model_answer,
                       time_limit, time_limit_seconds, complexity_time, complexity_space,
                       hints, concepts_tested, common_mistakes, interviewer_expectations, follow_up_questions,
                       create_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);`

	for _, q := range qs {
		if _, err = tx.Exec(ctx, stmt,
			q.QuestionID, q.Text, q.Category, q.Difficulty, q.Language, q.ModelAnswer,
			q.TimeLimit, q.TimeLimitSeconds, q.ComplexityTime, q.ComplexitySpace,
			q.Hints, q.ConceptsTested, q.CommonMistakes, q.InterviewerExpectations, q.FollowUpQuestions,
			q.CreateTime); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByIDs fetches questions preserving the requested order.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	const stmt = `
SELECT question_id, text, category, difficulty, language, model_answer,
       time_limit, time_limit_seconds, complexity_time, complexity_space,
       hints, concepts_tested, common_mistakes, interviewer_expectations, follow_up_questions,
       create_time
FROM questions
WHERE question_id = ANY($1);`

	rows, err := s.db.Query(ctx, stmt, ids)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}

	questions, err := pgx.CollectRows(rows, scanQuestion)
	if err != nil {
		return nil, fmt.Errorf("collect questions: %w", err)
	}

	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.QuestionID] = q
	}

	ordered := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}

	return ordered, nil
}

func scanQuestion(r pgx.CollectableRow) (domain.Question, error) {
	var q domain.Question
	err := r.Scan(
		&q.QuestionID, &q.Text, &q.Category, &q.Difficulty, &q.Language, &q.ModelAnswer,
		&q.TimeLimit, &q.TimeLimitSeconds, &q.ComplexityTime, &q.ComplexitySpace,
		&q.Hints, &q.ConceptsTested, &q.CommonMistakes, &q.InterviewerExpectations, &q.FollowUpQuestions,
		&q.CreateTime)
	return q, err
}
