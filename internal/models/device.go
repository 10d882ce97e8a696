package models

import "time"

type DeviceType string

const (
	DeviceTypeMobile  DeviceType = "MOBILE"
	DeviceTypeTablet  DeviceType = "TABLET"
	DeviceTypeDesktop DeviceType = "DESKTOP"
	DeviceTypeOther   DeviceType = "OTHER"
)

type Device struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	Type        DeviceType `json:"type"`
	OS          string     `json:"os,omitempty"`
	DeviceModel string     `json:"device_model,omitempty"`
	IPAddress   string     `json:"ip_address,omitempty"`
	UserAgent   string     `json:"user_agent,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type RegisterDeviceRequest struct {
	Name        string     `json:"name"`
	Type        DeviceType `json:"type"`
	OS          string     `json:"os,omitempty"`
	DeviceModel string     `json:"device_model,omitempty"`
	IPAddress   string     `json:"ip_address,omitempty"`
	UserAgent   string     `json:"user_agent,omitempty"`
}
