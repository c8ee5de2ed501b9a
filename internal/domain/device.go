package domain

import "time"

// PlatformUnknown is stored when a registration omits its platform.
const PlatformUnknown = "unknown"

type RegisterDeviceRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform"`
}

// Device is a push token owned by a user. (UserID, Token) is unique.
type Device struct {
	UserID    string    `json:"-" dynamodbav:"user_id"`
	Token     string    `json:"token" dynamodbav:"token"`
	Platform  string    `json:"platform" dynamodbav:"platform"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}
