package handlers

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"user-identity-service/internal/models"
	"user-identity-service/internal/utils"
)

func writeJSON(ctx *fasthttp.RequestCtx, statusCode int, value interface{}) {
	ctx.SetStatusCode(statusCode)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(value)
}

func writeError(ctx *fasthttp.RequestCtx, statusCode int, message string) {
	writeJSON(ctx, statusCode, map[string]string{"error": message})
}

// authUserID достаёт идентификатор пользователя, установленный middleware.
func authUserID(ctx *fasthttp.RequestCtx) (string, bool) {
	userID, ok := ctx.UserValue("user_id").(string)
	if !ok || userID == "" {
		utils.LogError("Handlers", "user_id не найден в контексте", nil)
		writeError(ctx, fasthttp.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return userID, true
}

func pathParam(ctx *fasthttp.RequestCtx, name string) string {
	value, _ := ctx.UserValue(name).(string)
	return value
}

func accountToResponse(account *models.Account) models.AccountResponse {
	response := models.AccountResponse{
		ID:                 account.ID,
		AccountNumber:      account.AccountNumber,
		AccountType:        string(account.AccountType),
		Status:             string(account.Status),
		Balance:            account.Balance.StringFixed(2),
		Currency:           account.Currency,
		IsPrimary:          account.IsPrimary,
		VerificationStatus: string(account.VerificationStatus),
		CreatedAt:          account.CreatedAt.Format(time.RFC3339),
	}
	if account.LastActivityAt != nil {
		response.LastActivityAt = account.LastActivityAt.Format(time.RFC3339)
	}
	return response
}
