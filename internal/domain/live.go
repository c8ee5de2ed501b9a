package domain

// Live message types exchanged over the realtime channel.
const (
	LiveWelcome      = "welcome"
	LiveRegister     = "register"
	LiveRegistered   = "registered"
	LiveNotification = "notification"
)

// LiveMessage is the JSON frame written to and read from realtime clients.
type LiveMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	UserID  string `json:"userId,omitempty"`
}
