package domain

import "time"

// Delivery channels for a notification send.
const (
	ChannelMobile = "mobile"
	ChannelInApp  = "in_app"
	ChannelBoth   = "both"
)

// AudienceAll is the default target audience label.
const AudienceAll = "all"

// Notification is one recipient's copy of a sent notification. All copies of a
// single send share ID; only Read and ReadAt ever change.
type Notification struct {
	ID             string     `json:"id" dynamodbav:"notification_id"`
	UserID         string     `json:"userId" dynamodbav:"user_id"`
	Title          string     `json:"title" dynamodbav:"title"`
	Body           string     `json:"body" dynamodbav:"body"`
	TargetAudience string     `json:"targetAudience" dynamodbav:"target_audience"`
	Channel        string     `json:"channel" dynamodbav:"channel"`
	CreatedAt      time.Time  `json:"createdAt" dynamodbav:"created_at"`
	Read           bool       `json:"read" dynamodbav:"read"`
	ReadAt         *time.Time `json:"readAt,omitempty" dynamodbav:"read_at,omitempty"`
}

// IncludesMobile reports whether channel c fans out to push.
func IncludesMobile(c string) bool { return c == ChannelMobile || c == ChannelBoth }

// IncludesInApp reports whether channel c fans out to live clients.
func IncludesInApp(c string) bool { return c == ChannelInApp || c == ChannelBoth }
