package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"user-identity-service/internal/services"
	"user-identity-service/internal/utils"
)

type AuthMiddleware struct {
	authService *services.AuthService
}

func NewAuthMiddleware(authService *services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireAuth проверяет JWT токен и кладёт user_id в контекст запроса.
func (m *AuthMiddleware) RequireAuth(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		startTime := time.Now()

		authHeader := string(ctx.Request.Header.Peek("Authorization"))
		if authHeader == "" {
			utils.LogWarning("Middleware", "Отсутствует заголовок Authorization")
			writeAuthError(ctx, "Требуется авторизация")
			utils.LogResponse("RequireAuth", fasthttp.StatusUnauthorized, time.Since(startTime))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.LogWarning("Middleware", "Неверный формат заголовка Authorization")
			writeAuthError(ctx, "Неверный формат токена")
			utils.LogResponse("RequireAuth", fasthttp.StatusUnauthorized, time.Since(startTime))
			return
		}

		claims, err := m.authService.ValidateToken(parts[1])
		if err != nil {
			utils.LogWarning("Middleware", "Невалидный токен: %v", err)
			writeAuthError(ctx, "Невалидный или истёкший токен")
			utils.LogResponse("RequireAuth", fasthttp.StatusUnauthorized, time.Since(startTime))
			return
		}

		ctx.SetUserValue("user_id", claims.UserID)
		next(ctx)
	}
}

func writeAuthError(ctx *fasthttp.RequestCtx, message string) {
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(map[string]string{"error": message})
}
