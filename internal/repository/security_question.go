package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"user-identity-service/internal/models"
)

var ErrQuestionNotFound = errors.New("контрольный вопрос не найден")

type SecurityQuestionRepository struct {
	db *pgxpool.Pool
}

func NewSecurityQuestionRepository(db *pgxpool.Pool) *SecurityQuestionRepository {
	return &SecurityQuestionRepository{db: db}
}

const questionColumns = `id, user_id, question, answer_hash, type, is_active, created_at`

func scanQuestion(row pgx.Row) (*models.SecurityQuestion, error) {
	q := &models.SecurityQuestion{}
	err := row.Scan(
		&q.ID,
		&q.UserID,
		&q.Question,
		&q.AnswerHash,
		&q.Type,
		&q.IsActive,
		&q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (r *SecurityQuestionRepository) Create(ctx context.Context, q *models.SecurityQuestion) error {
	query := `
		INSERT INTO security_questions (user_id, question, answer_hash, type, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		q.UserID, q.Question, q.AnswerHash, string(q.Type),
	).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания контрольного вопроса: %w", err)
	}

	q.IsActive = true
	return nil
}

func (r *SecurityQuestionRepository) GetByID(ctx context.Context, questionID string) (*models.SecurityQuestion, error) {
	query := `SELECT ` + questionColumns + ` FROM security_questions WHERE id = $1`

	q, err := scanQuestion(r.db.QueryRow(ctx, query, questionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("ошибка получения контрольного вопроса: %w", err)
	}
	return q, nil
}

func (r *SecurityQuestionRepository) GetByUserID(ctx context.Context, userID string) ([]models.SecurityQuestion, error) {
	query := `SELECT ` + questionColumns + ` FROM security_questions WHERE user_id = $1 AND is_active ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения контрольных вопросов: %w", err)
	}
	defer rows.Close()

	var questions []models.SecurityQuestion
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования контрольного вопроса: %w", err)
		}
		questions = append(questions, *q)
	}

	return questions, rows.Err()
}

func (r *SecurityQuestionRepository) Delete(ctx context.Context, questionID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM security_questions WHERE id = $1`, questionID)
	if err != nil {
		return fmt.Errorf("ошибка удаления контрольного вопроса: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrQuestionNotFound
	}
	return nil
}
