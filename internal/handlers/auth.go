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

type AuthHandler struct {
	userService *services.UserService
	authService *services.AuthService
}

func NewAuthHandler(userService *services.UserService, authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
	}
}

// Register обрабатывает POST /auth/register
func (h *AuthHandler) Register(ctx *fasthttp.RequestCtx) {
	var req models.RegisterRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "Имя пользователя и пароль обязательны")
		return
	}

	user, err := h.userService.Register(ctx, req)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			writeError(ctx, fasthttp.StatusConflict, "Имя пользователя уже занято")
			return
		}
		utils.LogError("AuthHandler", "Ошибка регистрации", err)
		writeError(ctx, fasthttp.StatusInternalServerError, "Ошибка регистрации")
		return
	}

	writeJSON(ctx, fasthttp.StatusCreated, user)
}

// Login обрабатывает POST /auth/login
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	var req models.LoginRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	response, err := h.userService.Login(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(ctx, fasthttp.StatusUnauthorized, "Неверное имя пользователя или пароль")
			return
		}
		utils.LogError("AuthHandler", "Ошибка входа", err)
		writeError(ctx, fasthttp.StatusInternalServerError, "Ошибка входа")
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, response)
}

// Refresh обрабатывает POST /auth/refresh
func (h *AuthHandler) Refresh(ctx *fasthttp.RequestCtx) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Token == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	token, err := h.authService.RefreshToken(req.Token)
	if err != nil {
		writeError(ctx, fasthttp.StatusUnauthorized, "Невалидный или истёкший токен")
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_in": int64(h.authService.TokenTTL().Seconds()),
	})
}
