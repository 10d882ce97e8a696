package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/valyala/fasthttp"

	"user-identity-service/internal/models"
	"user-identity-service/internal/repository"
	"user-identity-service/internal/services"
	"user-identity-service/internal/utils"
)

type AccountHandler struct {
	accountService *services.AccountService
}

func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// writeAccountError переводит ошибки сервиса счетов в HTTP статусы.
func writeAccountError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		writeError(ctx, fasthttp.StatusNotFound, "Счёт не найден")
	case errors.Is(err, repository.ErrUserNotFound):
		writeError(ctx, fasthttp.StatusNotFound, "Пользователь не найден")
	case errors.Is(err, repository.ErrAccountNumberTaken):
		writeError(ctx, fasthttp.StatusConflict, "Номер счёта уже занят")
	case errors.Is(err, services.ErrInvalidAmount):
		writeError(ctx, fasthttp.StatusBadRequest, "Сумма должна быть больше 0")
	case errors.Is(err, services.ErrInsufficientBalance):
		writeError(ctx, fasthttp.StatusBadRequest, "Недостаточно средств")
	case errors.Is(err, services.ErrSelfTransfer):
		writeError(ctx, fasthttp.StatusBadRequest, "Счета отправителя и получателя совпадают")
	case errors.Is(err, services.ErrNotAccountOwner):
		writeError(ctx, fasthttp.StatusForbidden, "Нет доступа к данному счёту")
	default:
		writeError(ctx, fasthttp.StatusInternalServerError, "Внутренняя ошибка")
	}
}

// CreateAccount обрабатывает POST /accounts
func (h *AccountHandler) CreateAccount(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	var req models.CreateAccountRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	account, err := h.accountService.CreateAccount(ctx, userID, req)
	if err != nil {
		utils.LogError("AccountHandler", "Ошибка создания счёта", err)
		writeAccountError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusCreated, accountToResponse(account))
}

// GetAccounts обрабатывает GET /accounts — все счета текущего пользователя
func (h *AccountHandler) GetAccounts(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	accounts, err := h.accountService.GetAccountsByUserID(ctx, userID)
	if err != nil {
		utils.LogError("AccountHandler", "Ошибка получения счетов", err)
		writeAccountError(ctx, err)
		return
	}

	responses := make([]models.AccountResponse, 0, len(accounts))
	for i := range accounts {
		responses = append(responses, accountToResponse(&accounts[i]))
	}

	writeJSON(ctx, fasthttp.StatusOK, models.AccountListResponse{
		Accounts: responses,
		Total:    len(responses),
	})
}

// GetAccountByID обрабатывает GET /accounts/{id}
func (h *AccountHandler) GetAccountByID(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}
	accountID := pathParam(ctx, "id")

	if err := h.accountService.VerifyOwnership(ctx, accountID, userID); err != nil {
		writeAccountError(ctx, err)
		return
	}

	account, err := h.accountService.GetAccountByID(ctx, accountID)
	if err != nil {
		writeAccountError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, accountToResponse(account))
}

// GetAccountByNumber обрабатывает GET /accounts/number/{number}
func (h *AccountHandler) GetAccountByNumber(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}
	accountNumber := pathParam(ctx, "number")

	account, err := h.accountService.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		writeAccountError(ctx, err)
		return
	}
	if account.UserID != userID {
		writeError(ctx, fasthttp.StatusForbidden, "Нет доступа к данному счёту")
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, accountToResponse(account))
}

// GetPrimaryAccount обрабатывает GET /accounts/primary
func (h *AccountHandler) GetPrimaryAccount(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	account, err := h.accountService.GetPrimaryAccountByUserID(ctx, userID)
	if err != nil {
		writeAccountError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, accountToResponse(account))
}

// UpdateAccount обрабатывает PUT /accounts/{id}
func (h *AccountHandler) UpdateAccount(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}
	accountID := pathParam(ctx, "id")

	if err := h.accountService.VerifyOwnership(ctx, accountID, userID); err != nil {
		writeAccountError(ctx, err)
		return
	}

	var req models.UpdateAccountRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	account, err := h.accountService.UpdateAccount(ctx, accountID, req)
	if err != nil {
		writeAccountError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, accountToResponse(account))
}

// DeleteAccount обрабатывает DELETE /accounts/{id}
func (h *AccountHandler) DeleteAccount(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}
	accountID := pathParam(ctx, "id")

	if err := h.accountService.VerifyOwnership(ctx, accountID, userID); err != nil {
		writeAccountError(ctx, err)
		return
	}

	if err := h.accountService.DeleteAccount(ctx, accountID); err != nil {
		utils.LogError("AccountHandler", "Ошибка удаления счёта", err)
		writeAccountError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]string{
		"message":    "Счёт удалён",
		"account_id": accountID,
	})
}

// Deposit обрабатывает POST /accounts/{id}/deposit
func (h *AccountHandler) Deposit(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}
	accountID := pathParam(ctx, "id")

	if err := h.accountService.VerifyOwnership(ctx, accountID, userID); err != nil {
		writeAccountError(ctx, err)
		return
	}

	var req models.AmountRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	account, err := h.accountService.Deposit(ctx, accountID, req.Amount)
	if err != nil {
		writeAccountError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, accountToResponse(account))
}

// Withdraw обрабатывает POST /accounts/{id}/withdraw
func (h *AccountHandler) Withdraw(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}
	accountID := pathParam(ctx, "id")

	if err := h.accountService.VerifyOwnership(ctx, accountID, userID); err != nil {
		writeAccountError(ctx, err)
		return
	}

	var req models.AmountRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	account, err := h.accountService.Withdraw(ctx, accountID, req.Amount)
	if err != nil {
		writeAccountError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, accountToResponse(account))
}

// Transfer обрабатывает POST /accounts/transfer
func (h *AccountHandler) Transfer(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	var req models.TransferRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	// переводить можно только со своего счёта
	if err := h.accountService.VerifyOwnership(ctx, req.FromAccountID, userID); err != nil {
		writeAccountError(ctx, err)
		return
	}

	account, err := h.accountService.Transfer(ctx, req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		utils.LogError("AccountHandler", "Ошибка выполнения перевода", err)
		writeAccountError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, accountToResponse(account))
}

// SetPrimary обрабатывает POST /accounts/{id}/primary
func (h *AccountHandler) SetPrimary(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}
	accountID := pathParam(ctx, "id")

	account, err := h.accountService.SetAsPrimaryAccount(ctx, accountID, userID)
	if err != nil {
		writeAccountError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, accountToResponse(account))
}

// ChangeStatus обрабатывает PUT /accounts/{id}/status
func (h *AccountHandler) ChangeStatus(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}
	accountID := pathParam(ctx, "id")

	if err := h.accountService.VerifyOwnership(ctx, accountID, userID); err != nil {
		writeAccountError(ctx, err)
		return
	}

	var req models.ChangeStatusRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	account, err := h.accountService.ChangeStatus(ctx, accountID, req.Status)
	if err != nil {
		writeAccountError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, accountToResponse(account))
}

// ChangeVerificationStatus обрабатывает PUT /accounts/{id}/verification
func (h *AccountHandler) ChangeVerificationStatus(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}
	accountID := pathParam(ctx, "id")

	if err := h.accountService.VerifyOwnership(ctx, accountID, userID); err != nil {
		writeAccountError(ctx, err)
		return
	}

	var req models.ChangeVerificationStatusRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Некорректное тело запроса")
		return
	}

	account, err := h.accountService.ChangeVerificationStatus(ctx, accountID, req.VerificationStatus)
	if err != nil {
		writeAccountError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, accountToResponse(account))
}

// ownedAccounts отбирает из выборки счета текущего пользователя.
func ownedAccounts(accounts []models.Account, userID string) []models.AccountResponse {
	responses := make([]models.AccountResponse, 0, len(accounts))
	for i := range accounts {
		if accounts[i].UserID != userID {
			continue
		}
		responses = append(responses, accountToResponse(&accounts[i]))
	}
	return responses
}

// GetAccountsByType обрабатывает GET /accounts/type/{type}
func (h *AccountHandler) GetAccountsByType(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}
	accountType := models.AccountType(strings.ToUpper(pathParam(ctx, "type")))

	accounts, err := h.accountService.GetAccountsByType(ctx, accountType)
	if err != nil {
		writeAccountError(ctx, err)
		return
	}

	responses := ownedAccounts(accounts, userID)
	writeJSON(ctx, fasthttp.StatusOK, models.AccountListResponse{
		Accounts: responses,
		Total:    len(responses),
	})
}

// GetAccountsByStatus обрабатывает GET /accounts/status/{status}
func (h *AccountHandler) GetAccountsByStatus(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}
	status := models.AccountStatus(strings.ToUpper(pathParam(ctx, "status")))

	accounts, err := h.accountService.GetAccountsByStatus(ctx, status)
	if err != nil {
		writeAccountError(ctx, err)
		return
	}

	responses := ownedAccounts(accounts, userID)
	writeJSON(ctx, fasthttp.StatusOK, models.AccountListResponse{
		Accounts: responses,
		Total:    len(responses),
	})
}

// GetAccountsByVerificationStatus обрабатывает GET /accounts/verification/{status}
func (h *AccountHandler) GetAccountsByVerificationStatus(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}
	vs := models.VerificationStatus(strings.ToUpper(pathParam(ctx, "status")))

	accounts, err := h.accountService.GetAccountsByVerificationStatus(ctx, vs)
	if err != nil {
		writeAccountError(ctx, err)
		return
	}

	responses := ownedAccounts(accounts, userID)
	writeJSON(ctx, fasthttp.StatusOK, models.AccountListResponse{
		Accounts: responses,
		Total:    len(responses),
	})
}

// GetTotalBalance обрабатывает GET /accounts/total-balance
func (h *AccountHandler) GetTotalBalance(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	total, err := h.accountService.GetTotalBalanceByUserID(ctx, userID)
	if err != nil {
		writeAccountError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, models.TotalBalanceResponse{
		UserID:       userID,
		TotalBalance: total.StringFixed(2),
	})
}

// GetAccountCount обрабатывает GET /accounts/count
func (h *AccountHandler) GetAccountCount(ctx *fasthttp.RequestCtx) {
	userID, ok := authUserID(ctx)
	if !ok {
		return
	}

	count, err := h.accountService.CountAccountsByUserID(ctx, userID)
	if err != nil {
		writeAccountError(ctx, err)
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, models.AccountCountResponse{
		UserID: userID,
		Count:  count,
	})
}
