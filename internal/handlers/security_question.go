package handlers

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"

	"user-identity-service/internal/models"
	"user-identity-service/internal/repository"
	"user-identity-service/internal/services"
)

type SecurityQuestionHandler struct {
	questionService *services.SecurityQuestionService
}

func NewSecurityQuestionHandler(questionService *services.SecurityQuestionService) *SecurityQuestionHandler {
	return &SecurityQuestionHandler{questionService: questionService}
}

func writeQuestionError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, repository.ErrQuestionNotFound):
		writeError(ctx, fasthttp.StatusNotFound, "Контрольный вопрос не найден")
	case errors.Is(err, services.ErrNotQuestionOwner):
		writeError(ctx, fasthttp.StatusForbidden, "Нет доступа к данному вопросу")
	case errors.Is(err, services.ErrEmptyQuestion):
		writeError(ctx, fasthttp.StatusBadRequest, "Вопрос и ответ не могут быть пустыми")
	default:
		writeError(ctx, fasthttp.StatusInternalServerError, "Внутренняя ошибка")
	}
}

// Create обрабатывает POST /security-questions
func (h *SecurityQuestionHandler) Create(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	var req models.CreateSecurityQuestionRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	question, err := h.questionService.Create(ctx, userID, req)
	if err != nil {
		writeQuestionError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusCreated, question)
}

// List обрабатывает GET /security-questions
func (h *SecurityQuestionHandler) List(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	questions, err := h.questionService.GetUserQuestions(ctx, userID)
	if err != nil {
		writeQuestionError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"questions": questions,
		"total":     len(questions),
	})
}

// VerifyAnswer обрабатывает POST /security-questions/{id}/verify
func (h *SecurityQuestionHandler) VerifyAnswer(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}
	questionID := pathParam(ctx, "id")

	var req models.VerifyAnswerRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	correct, err := h.questionService.VerifyAnswer(ctx, questionID, userID, req.Answer)
	if err != nil {
		writeQuestionError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, models.VerifyAnswerResponse{
		QuestionID: questionID,
		Correct:    correct,
	})
}

// Delete обрабатывает DELETE /security-questions/{id}
func (h *SecurityQuestionHandler) Delete(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	if err := h.questionService.Delete(ctx, pathParam(ctx, "id"), userID); err != nil {
		writeQuestionError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]string{"message": "Контрольный вопрос удалён"})
}
