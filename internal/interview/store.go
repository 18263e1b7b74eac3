package interview

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepwise/prepwise/internal/domain"
	"github.com/prepwise/prepwise/internal/errors"
)

// PGStore persists interviews, their ordered question lists, and their
// evaluated responses in Postgres.
type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Insert(ctx context.Context, iv *domain.Interview) error {
	const stmt = `
INSERT INTO interviews (interview_id, user_id, topic, difficulty, language, question_count, status, create_time)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	_, err := s.db.Exec(ctx, stmt,
		iv.InterviewID, iv.UserID, iv.Topic, iv.Difficulty, iv.Language, iv.QuestionCount, iv.Status, iv.CreateTime)
	if err != nil {
		return fmt.Errorf("insert interview: %w", err)
	}

	return nil
}

func (s *PGStore) Get(ctx context.Context, interviewID, userID string) (*domain.Interview, error) {
	const stmt = `
SELECT interview_id, user_id, topic, difficulty, language, question_count, status,
       overall_score, performance_summary, start_time, complete_time, create_time
FROM interviews
WHERE interview_id = $1 AND user_id = $2;`

	var (
		iv          domain.Interview
		summaryJSON []byte
	)
	err := s.db.QueryRow(ctx, stmt, interviewID, userID).Scan(
		&iv.InterviewID, &iv.UserID, &iv.Topic, &iv.Difficulty, &iv.Language, &iv.QuestionCount, &iv.Status,
		&iv.OverallScore, &summaryJSON, &iv.StartTime, &iv.CompleteTime, &iv.CreateTime)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("interview not found: interview=%s", interviewID))
	}
	if err != nil {
		return nil, fmt.Errorf("get interview: %w", err)
	}

	if summaryJSON != nil {
		var summary domain.PerformanceSummary
		if err := json.Unmarshal(summaryJSON, &summary); err != nil {
			return nil, fmt.Errorf("unmarshal performance summary: %w", err)
		}
		iv.PerformanceSummary = &summary
	}

	if err := s.loadQuestions(ctx, &iv); err != nil {
		return nil, err
	}
	if err := s.loadResponses(ctx, &iv); err != nil {
		return nil, err
	}

	return &iv, nil
}

func (s *PGStore) loadQuestions(ctx context.Context, iv *domain.Interview) error {
	const stmt = `
SELECT q.question_id, q.text, q.category, q.difficulty, q.language, q.model_answer,
       q.time_limit, q.time_limit_seconds, q.complexity_time, q.complexity_space,
       q.hints, q.concepts_tested, q.common_mistakes, q.interviewer_expectations, q.follow_up_questions,
       q.create_time
FROM interview_questions iq
JOIN questions q ON q.question_id = iq.question_id
WHERE iq.interview_id = $1
ORDER BY iq.position;`

	rows, err := s.db.Query(ctx, stmt, iv.InterviewID)
	if err != nil {
		return fmt.Errorf("load interview questions: %w", err)
	}

	questions, err := pgx.CollectRows(rows, scanQuestion)
	if err != nil {
		return fmt.Errorf("collect interview questions: %w", err)
	}

	iv.Questions = questions
	iv.QuestionIDs = make([]string, 0, len(questions))
	for _, q := range questions {
		iv.QuestionIDs = append(iv.QuestionIDs, q.QuestionID)
	}

	return nil
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

func (s *PGStore) loadResponses(ctx context.Context, iv *domain.Interview) error {
	const stmt = `
SELECT question_id, user_answer, time_taken, submit_time, evaluation
FROM interview_responses
WHERE interview_id = $1
ORDER BY submit_time;`

	rows, err := s.db.Query(ctx, stmt, iv.InterviewID)
	if err != nil {
		return fmt.Errorf("load interview responses: %w", err)
	}

	responses, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.InterviewResponse, error) {
		var (
			resp     domain.InterviewResponse
			evalJSON []byte
		)
		if err := r.Scan(&resp.QuestionID, &resp.UserAnswer, &resp.TimeTaken, &resp.SubmitTime, &evalJSON); err != nil {
			return domain.InterviewResponse{}, err
		}
		if err := json.Unmarshal(evalJSON, &resp.Evaluation); err != nil {
			return domain.InterviewResponse{}, fmt.Errorf("unmarshal evaluation: %w", err)
		}
		return resp, nil
	})
	if err != nil {
		return fmt.Errorf("collect interview responses: %w", err)
	}

	iv.Responses = responses
	return nil
}

func (s *PGStore) List(ctx context.Context, f ListFilter) ([]domain.Interview, int, error) {
	const stmt = `
SELECT interview_id, user_id, topic, difficulty, language, question_count, status,
       overall_score, start_time, complete_time, create_time
FROM interviews
WHERE user_id = $1 AND ($2 = '' OR status = $2)
ORDER BY create_time DESC
LIMIT $3 OFFSET $4;`

	offset := (f.Page - 1) * f.Limit

	rows, err := s.db.Query(ctx, stmt, f.UserID, string(f.Status), f.Limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list interviews: %w", err)
	}

	interviews, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Interview, error) {
		var iv domain.Interview
		err := r.Scan(
			&iv.InterviewID, &iv.UserID, &iv.Topic, &iv.Difficulty, &iv.Language, &iv.QuestionCount, &iv.Status,
			&iv.OverallScore, &iv.StartTime, &iv.CompleteTime, &iv.CreateTime)
		return iv, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("collect interviews: %w", err)
	}

	const countStmt = `SELECT COUNT(*) FROM interviews WHERE user_id = $1 AND ($2 = '' OR status = $2);`

	var total int
	if err := s.db.QueryRow(ctx, countStmt, f.UserID, string(f.Status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count interviews: %w", err)
	}

	return interviews, total, nil
}

func (s *PGStore) SetQuestions(ctx context.Context, interviewID string, questionIDs []string) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		delStmt = `DELETE FROM interview_questions WHERE interview_id = $1;`
		insStmt = `INSERT INTO interview_questions (interview_id, question_id, position) VALUES ($1, $2, $3);`
	)

	if _, err = tx.Exec(ctx, delStmt, interviewID); err != nil {
		return fmt.Errorf("clear interview questions: %w", err)
	}
	for i, qid := range questionIDs {
		if _, err = tx.Exec(ctx, insStmt, interviewID, qid, i); err != nil {
			return fmt.Errorf("insert interview question: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// MarkStarted advances pending->in-progress. The status guard keeps the
// transition monotonic under concurrent starts.
func (s *PGStore) MarkStarted(ctx context.Context, interviewID string, at time.Time) error {
	const stmt = `
UPDATE interviews SET status = $2, start_time = $3
WHERE interview_id = $1 AND status = $4;`

	_, err := s.db.Exec(ctx, stmt, interviewID, domain.InterviewInProgress, at, domain.InterviewPending)
	if err != nil {
		return fmt.Errorf("mark interview started: %w", err)
	}

	return nil
}

// SaveResult writes the interview's terminal fields and rewrites its
// evaluated response collection in one transaction.
func (s *PGStore) SaveResult(ctx context.Context, iv *domain.Interview) (err error) {
	var summaryJSON []byte
	if iv.PerformanceSummary != nil {
		summaryJSON, err = json.Marshal(iv.PerformanceSummary)
		if err != nil {
			return fmt.Errorf("marshal performance summary: %w", err)
		}
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

	const updStmt = `
UPDATE interviews
SET status = $2, overall_score = $3, performance_summary = $4, start_time = $5, complete_time = $6
WHERE interview_id = $1;`

	if _, err = tx.Exec(ctx, updStmt,
		iv.InterviewID, iv.Status, iv.OverallScore, summaryJSON, iv.StartTime, iv.CompleteTime); err != nil {
		return fmt.Errorf("update interview: %w", err)
	}

	const (
		delStmt = `DELETE FROM interview_responses WHERE interview_id = $1;`
		insStmt = `
INSERT INTO interview_responses (interview_id, question_id, user_answer, time_taken, submit_time, evaluation)
VALUES ($1, $2, $3, $4, $5, $6);`
	)

	if _, err = tx.Exec(ctx, delStmt, iv.InterviewID); err != nil {
		return fmt.Errorf("clear interview responses: %w", err)
	}
	for _, r := range iv.Responses {
		evalJSON, merr := json.Marshal(r.Evaluation)
		if merr != nil {
			err = fmt.Errorf("marshal evaluation: %w", merr)
			return err
		}
		if _, err = tx.Exec(ctx, insStmt,
			iv.InterviewID, r.QuestionID, r.UserAnswer, r.TimeTaken, r.SubmitTime, evalJSON); err != nil {
			return fmt.Errorf("insert interview response: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PGStore) Delete(ctx context.Context, interviewID, userID string) error {
	const stmt = `DELETE FROM interviews WHERE interview_id = $1 AND user_id = $2;`

	ct, err := s.db.Exec(ctx, stmt, interviewID, userID)
	if err != nil {
		return fmt.Errorf("delete interview: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("interview not found: interview=%s", interviewID))
	}

	return nil
}

func (s *PGStore) Stats(ctx context.Context, userID string) (domain.UserStats, error) {
	const stmt = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE status = 'completed'),
       COUNT(*) FILTER (WHERE status = 'in-progress'),
       COALESCE(AVG(overall_score) FILTER (WHERE status = 'completed'), 0)
FROM interviews
WHERE user_id = $1;`

	var st domain.UserStats
	err := s.db.QueryRow(ctx, stmt, userID).Scan(
		&st.TotalInterviews, &st.CompletedInterviews, &st.InProgressInterviews, &st.AverageScore)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("interview stats: %w", err)
	}

	return st, nil
}
