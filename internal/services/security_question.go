package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"user-identity-service/internal/models"
	"user-identity-service/internal/repository"
	"user-identity-service/internal/utils"
)

var (
	ErrNotQuestionOwner = errors.New("контрольный вопрос не принадлежит указанному пользователю")
	ErrEmptyQuestion    = errors.New("вопрос и ответ не могут быть пустыми")
)

type SecurityQuestionService struct {
	questionRepo *repository.SecurityQuestionRepository
}

func NewSecurityQuestionService(questionRepo *repository.SecurityQuestionRepository) *SecurityQuestionService {
	return &SecurityQuestionService{questionRepo: questionRepo}
}

// Create сохраняет контрольный вопрос; ответ хранится только в виде bcrypt-хеша.
// Ответ нормализуется (регистр и пробелы по краям не учитываются при проверке).
func (s *SecurityQuestionService) Create(ctx context.Context, userID string, req models.CreateSecurityQuestionRequest) (*models.SecurityQuestion, error) {
	utils.LogInfo("SecurityQuestionService", "Добавление контрольного вопроса для пользователя %s", userID)

	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Answer) == "" {
		return nil, ErrEmptyQuestion
	}

	answerHash, err := bcrypt.GenerateFromPassword([]byte(normalizeAnswer(req.Answer)), bcrypt.DefaultCost)
	if err != nil {
		utils.LogError("SecurityQuestionService", "Ошибка хеширования ответа", err)
		return nil, err
	}

	questionType := req.Type
	if questionType == "" {
		questionType = models.SecurityQuestionCustom
	}

	question := &models.SecurityQuestion{
		UserID:     userID,
		Question:   req.Question,
		AnswerHash: string(answerHash),
		Type:       questionType,
	}

	if err := s.questionRepo.Create(ctx, question); err != nil {
		utils.LogError("SecurityQuestionService", "Ошибка сохранения контрольного вопроса", err)
		return nil, err
	}

	utils.LogSuccess("SecurityQuestionService", "Контрольный вопрос %s добавлен", question.ID)
	return question, nil
}

func (s *SecurityQuestionService) GetUserQuestions(ctx context.Context, userID string) ([]models.SecurityQuestion, error) {
	return s.questionRepo.GetByUserID(ctx, userID)
}

// VerifyAnswer сравнивает ответ с сохранённым хешем. Несовпадение — не ошибка,
// а отрицательный результат проверки.
func (s *SecurityQuestionService) VerifyAnswer(ctx context.Context, questionID, userID, answer string) (bool, error) {
	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		return false, err
	}
	if question.UserID != userID {
		return false, ErrNotQuestionOwner
	}

	err = bcrypt.CompareHashAndPassword([]byte(question.AnswerHash), []byte(normalizeAnswer(answer)))
	if err != nil {
		utils.LogWarning("SecurityQuestionService", "Неверный ответ на вопрос %s", questionID)
		return false, nil
	}
	return true, nil
}

func (s *SecurityQuestionService) Delete(ctx context.Context, questionID, userID string) error {
	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		return err
	}
	if question.UserID != userID {
		return ErrNotQuestionOwner
	}

	if err := s.questionRepo.Delete(ctx, questionID); err != nil {
		return err
	}

	utils.LogSuccess("SecurityQuestionService", "Контрольный вопрос %s удалён", questionID)
	return nil
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
