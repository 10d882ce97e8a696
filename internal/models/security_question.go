package models

import "time"

type SecurityQuestionType string

const (
	SecurityQuestionPredefined SecurityQuestionType = "PREDEFINED"
	SecurityQuestionCustom     SecurityQuestionType = "CUSTOM"
)

type SecurityQuestion struct {
	ID         string               `json:"id"`
	UserID     string               `json:"user_id"`
	Question   string               `json:"question"`
	AnswerHash string               `json:"-"`
	Type       SecurityQuestionType `json:"type"`
	IsActive   bool                 `json:"is_active"`
	CreatedAt  time.Time            `json:"created_at"`
}

type CreateSecurityQuestionRequest struct {
	Question string               `json:"question"`
	Answer   string               `json:"answer"`
	Type     SecurityQuestionType `json:"type,omitempty"`
}

type VerifyAnswerRequest struct {
	Answer string `json:"answer"`
}

type VerifyAnswerResponse struct {
	QuestionID string `json:"question_id"`
	Correct    bool   `json:"correct"`
}
