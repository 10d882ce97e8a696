package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"user-identity-service/internal/models"
	"user-identity-service/internal/repository"
	"user-identity-service/internal/services"
)

type fixedDirectory map[string]*models.User

func (d fixedDirectory) GetByID(_ context.Context, userID string) (*models.User, error) {
	user, ok := d[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func newAccountFixture(t *testing.T, userIDs ...string) (*AccountHandler, *services.AccountService) {
	t.Helper()
	directory := fixedDirectory{}
	for _, id := range userIDs {
		directory[id] = &models.User{ID: id}
	}
	svc := services.NewAccountService(repository.NewMemoryAccountStore(), directory)
	return NewAccountHandler(svc), svc
}

func newRequestCtx(userID, body string, params map[string]string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	if userID != "" {
		ctx.SetUserValue("user_id", userID)
	}
	for name, value := range params {
		ctx.SetUserValue(name, value)
	}
	return ctx
}

func decodeResponse(t *testing.T, ctx *fasthttp.RequestCtx, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), dest))
}

func createAccount(t *testing.T, svc *services.AccountService, userID string) *models.Account {
	t.Helper()
	account, err := svc.CreateAccount(context.Background(), userID, models.CreateAccountRequest{
		AccountType: models.AccountTypeSavings,
	})
	require.NoError(t, err)
	return account
}

func TestCreateAccountHandler(t *testing.T) {
	handler, _ := newAccountFixture(t, "u1")

	ctx := newRequestCtx("u1", `{"account_type":"SAVINGS"}`, nil)
	handler.CreateAccount(ctx)

	assert.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())

	var resp models.AccountResponse
	decodeResponse(t, ctx, &resp)
	assert.Equal(t, "SAVINGS", resp.AccountType)
	assert.Equal(t, "0.00", resp.Balance)
	assert.Equal(t, "USD", resp.Currency)
	assert.True(t, resp.IsPrimary)
	assert.NotEmpty(t, resp.AccountNumber)
}

func TestCreateAccountHandlerBadBody(t *testing.T) {
	handler, _ := newAccountFixture(t, "u1")

	ctx := newRequestCtx("u1", `{not json`, nil)
	handler.CreateAccount(ctx)

	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestCreateAccountHandlerUnknownUser(t *testing.T) {
	handler, _ := newAccountFixture(t, "u1")

	ctx := newRequestCtx("ghost", `{"account_type":"SAVINGS"}`, nil)
	handler.CreateAccount(ctx)

	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestCreateAccountHandlerDuplicateNumber(t *testing.T) {
	handler, _ := newAccountFixture(t, "u1")

	first := newRequestCtx("u1", `{"account_type":"SAVINGS","account_number":"SAV-DUPLICAT"}`, nil)
	handler.CreateAccount(first)
	require.Equal(t, fasthttp.StatusCreated, first.Response.StatusCode())

	second := newRequestCtx("u1", `{"account_type":"CHECKING","account_number":"SAV-DUPLICAT"}`, nil)
	handler.CreateAccount(second)
	assert.Equal(t, fasthttp.StatusConflict, second.Response.StatusCode())
}

func TestHandlerRequiresUserID(t *testing.T) {
	handler, _ := newAccountFixture(t, "u1")

	ctx := newRequestCtx("", `{"account_type":"SAVINGS"}`, nil)
	handler.CreateAccount(ctx)

	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}

func TestDepositHandler(t *testing.T) {
	handler, svc := newAccountFixture(t, "u1")
	account := createAccount(t, svc, "u1")

	ctx := newRequestCtx("u1", `{"amount":"25.50"}`, map[string]string{"id": account.ID})
	handler.Deposit(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp models.AccountResponse
	decodeResponse(t, ctx, &resp)
	assert.Equal(t, "25.50", resp.Balance)
	assert.NotEmpty(t, resp.LastActivityAt)
}

func TestDepositHandlerInvalidAmount(t *testing.T) {
	handler, svc := newAccountFixture(t, "u1")
	account := createAccount(t, svc, "u1")

	ctx := newRequestCtx("u1", `{"amount":"-5"}`, map[string]string{"id": account.ID})
	handler.Deposit(ctx)

	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestDepositHandlerForeignAccount(t *testing.T) {
	handler, svc := newAccountFixture(t, "u1", "u2")
	account := createAccount(t, svc, "u1")

	ctx := newRequestCtx("u2", `{"amount":"5"}`, map[string]string{"id": account.ID})
	handler.Deposit(ctx)

	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())
}

func TestWithdrawHandlerInsufficient(t *testing.T) {
	handler, svc := newAccountFixture(t, "u1")
	account := createAccount(t, svc, "u1")

	ctx := newRequestCtx("u1", `{"amount":"1"}`, map[string]string{"id": account.ID})
	handler.Withdraw(ctx)

	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestGetAccountByIDHandlerNotFound(t *testing.T) {
	handler, _ := newAccountFixture(t, "u1")

	ctx := newRequestCtx("u1", "", map[string]string{"id": "missing"})
	handler.GetAccountByID(ctx)

	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestTransferHandler(t *testing.T) {
	handler, svc := newAccountFixture(t, "u1", "u2")
	from := createAccount(t, svc, "u1")
	to := createAccount(t, svc, "u2")
	_, err := svc.Deposit(context.Background(), from.ID, decimal.RequireFromString("100"))
	require.NoError(t, err)

	body := `{"from_account_id":"` + from.ID + `","to_account_id":"` + to.ID + `","amount":"40"}`
	ctx := newRequestCtx("u1", body, nil)
	handler.Transfer(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp models.AccountResponse
	decodeResponse(t, ctx, &resp)
	assert.Equal(t, to.ID, resp.ID)
	assert.Equal(t, "40.00", resp.Balance)
}

func TestTransferHandlerFromForeignAccount(t *testing.T) {
	handler, svc := newAccountFixture(t, "u1", "u2")
	from := createAccount(t, svc, "u1")
	to := createAccount(t, svc, "u2")

	// u2 пытается перевести с чужого счёта
	body := `{"from_account_id":"` + from.ID + `","to_account_id":"` + to.ID + `","amount":"40"}`
	ctx := newRequestCtx("u2", body, nil)
	handler.Transfer(ctx)

	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())
}

func TestSetPrimaryHandler(t *testing.T) {
	handler, svc := newAccountFixture(t, "u1")
	first := createAccount(t, svc, "u1")
	second := createAccount(t, svc, "u1")

	ctx := newRequestCtx("u1", "", map[string]string{"id": second.ID})
	handler.SetPrimary(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp models.AccountResponse
	decodeResponse(t, ctx, &resp)
	assert.True(t, resp.IsPrimary)

	demoted, err := svc.GetAccountByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.False(t, demoted.IsPrimary)
}

func TestGetTotalBalanceHandler(t *testing.T) {
	handler, svc := newAccountFixture(t, "u1")
	account := createAccount(t, svc, "u1")
	_, err := svc.Deposit(context.Background(), account.ID, decimal.RequireFromString("12.34"))
	require.NoError(t, err)

	ctx := newRequestCtx("u1", "", nil)
	handler.GetTotalBalance(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp models.TotalBalanceResponse
	decodeResponse(t, ctx, &resp)
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, "12.34", resp.TotalBalance)
}

func TestGetAccountsByTypeHandler(t *testing.T) {
	handler, svc := newAccountFixture(t, "u1", "u2")
	savings := createAccount(t, svc, "u1")
	_, err := svc.CreateAccount(context.Background(), "u1", models.CreateAccountRequest{
		AccountType: models.AccountTypeChecking,
	})
	require.NoError(t, err)
	// счёт того же типа у другого пользователя в выдачу не попадает
	createAccount(t, svc, "u2")

	ctx := newRequestCtx("u1", "", map[string]string{"type": "savings"})
	handler.GetAccountsByType(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp models.AccountListResponse
	decodeResponse(t, ctx, &resp)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, savings.ID, resp.Accounts[0].ID)
	assert.Equal(t, "SAVINGS", resp.Accounts[0].AccountType)
}

func TestGetAccountsByStatusHandler(t *testing.T) {
	handler, svc := newAccountFixture(t, "u1")
	active := createAccount(t, svc, "u1")
	suspended := createAccount(t, svc, "u1")
	_, err := svc.ChangeStatus(context.Background(), suspended.ID, models.AccountStatusSuspended)
	require.NoError(t, err)

	ctx := newRequestCtx("u1", "", map[string]string{"status": "ACTIVE"})
	handler.GetAccountsByStatus(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp models.AccountListResponse
	decodeResponse(t, ctx, &resp)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, active.ID, resp.Accounts[0].ID)
}

func TestGetAccountsByVerificationStatusHandler(t *testing.T) {
	handler, svc := newAccountFixture(t, "u1")
	pending := createAccount(t, svc, "u1")
	verified := createAccount(t, svc, "u1")
	_, err := svc.ChangeVerificationStatus(context.Background(), verified.ID, models.VerificationVerified)
	require.NoError(t, err)

	ctx := newRequestCtx("u1", "", map[string]string{"status": "VERIFIED"})
	handler.GetAccountsByVerificationStatus(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp models.AccountListResponse
	decodeResponse(t, ctx, &resp)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, verified.ID, resp.Accounts[0].ID)
	assert.NotEqual(t, pending.ID, resp.Accounts[0].ID)
}

func TestGetAccountsHandler(t *testing.T) {
	handler, svc := newAccountFixture(t, "u1")
	createAccount(t, svc, "u1")
	createAccount(t, svc, "u1")

	ctx := newRequestCtx("u1", "", nil)
	handler.GetAccounts(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp models.AccountListResponse
	decodeResponse(t, ctx, &resp)
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Accounts, 2)
}
