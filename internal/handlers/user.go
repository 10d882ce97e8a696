package handlers

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"

	"user-identity-service/internal/models"
	"user-identity-service/internal/repository"
	"user-identity-service/internal/services"
	"user-identity-service/internal/utils"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetMe обрабатывает GET /users/me
func (h *UserHandler) GetMe(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(ctx, fasthttp.StatusNotFound, "Пользователь не найден")
			return
		}
		writeError(ctx, fasthttp.StatusInternalServerError, "Ошибка получения профиля")
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, user)
}

// UpdateMe обрабатывает PUT /users/me
func (h *UserHandler) UpdateMe(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	user, err := h.userService.Update(ctx, userID, req)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(ctx, fasthttp.StatusNotFound, "Пользователь не найден")
			return
		}
		utils.LogError("UserHandler", "Ошибка обновления профиля", err)
		writeError(ctx, fasthttp.StatusInternalServerError, "Ошибка обновления профиля")
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, user)
}

// DeleteMe обрабатывает DELETE /users/me
func (h *UserHandler) DeleteMe(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	if err := h.userService.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(ctx, fasthttp.StatusNotFound, "Пользователь не найден")
			return
		}
		writeError(ctx, fasthttp.StatusInternalServerError, "Ошибка удаления пользователя")
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]string{"message": "Пользователь удалён"})
}
