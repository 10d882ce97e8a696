package models

import "time"

type AddressType string

const (
	AddressTypeHome  AddressType = "HOME"
	AddressTypeWork  AddressType = "WORK"
	AddressTypeOther AddressType = "OTHER"
)

type Address struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Street     string      `json:"street"`
	City       string      `json:"city"`
	State      string      `json:"state,omitempty"`
	PostalCode string      `json:"postal_code"`
	Country    string      `json:"country"`
	Type       AddressType `json:"type"`
	CreatedAt  time.Time   `json:"created_at"`
}

type AddressRequest struct {
	Street     string      `json:"street"`
	City       string      `json:"city"`
	State      string      `json:"state,omitempty"`
	PostalCode string      `json:"postal_code"`
	Country    string      `json:"country"`
	Type       AddressType `json:"type,omitempty"`
}
