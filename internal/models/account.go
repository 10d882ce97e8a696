package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeSavings  AccountType = "SAVINGS"
	AccountTypeBusiness AccountType = "BUSINESS"
	AccountTypeCredit   AccountType = "CREDIT"
	AccountTypeLoan     AccountType = "LOAN"
)

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusInactive  AccountStatus = "INACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
	AccountStatusClosed    AccountStatus = "CLOSED"
	AccountStatusPending   AccountStatus = "PENDING"
)

type VerificationStatus string

const (
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationPending  VerificationStatus = "PENDING"
	VerificationRejected VerificationStatus = "REJECTED"
	VerificationRequired VerificationStatus = "REQUIRED"
)

type Account struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	AccountNumber      string             `json:"account_number"`
	AccountType        AccountType        `json:"account_type"`
	Status             AccountStatus      `json:"status"`
	Balance            decimal.Decimal    `json:"balance"`
	Currency           string             `json:"currency"`
	IsPrimary          bool               `json:"is_primary"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	LastActivityAt     *time.Time         `json:"last_activity_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

type CreateAccountRequest struct {
	AccountType   AccountType `json:"account_type"`
	AccountNumber string      `json:"account_number,omitempty"`
	Currency      string      `json:"currency,omitempty"`
	IsPrimary     bool        `json:"is_primary,omitempty"`
}

type UpdateAccountRequest struct {
	AccountType        AccountType        `json:"account_type"`
	Status             AccountStatus      `json:"status"`
	Currency           string             `json:"currency"`
	IsPrimary          bool               `json:"is_primary"`
	VerificationStatus VerificationStatus `json:"verification_status"`
}

type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type TransferRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
}

type ChangeStatusRequest struct {
	Status AccountStatus `json:"status"`
}

type ChangeVerificationStatusRequest struct {
	VerificationStatus VerificationStatus `json:"verification_status"`
}

type AccountResponse struct {
	ID                 string `json:"id"`
	AccountNumber      string `json:"account_number"`
	AccountType        string `json:"account_type"`
	Status             string `json:"status"`
	Balance            string `json:"balance"`
	Currency           string `json:"currency"`
	IsPrimary          bool   `json:"is_primary"`
	VerificationStatus string `json:"verification_status"`
	LastActivityAt     string `json:"last_activity_at,omitempty"`
	CreatedAt          string `json:"created_at"`
}

type AccountListResponse struct {
	Accounts []AccountResponse `json:"accounts"`
	Total    int               `json:"total"`
}

type TotalBalanceResponse struct {
	UserID       string `json:"user_id"`
	TotalBalance string `json:"total_balance"`
}

type AccountCountResponse struct {
	UserID string `json:"user_id"`
	Count  int64  `json:"count"`
}
