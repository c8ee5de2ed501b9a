package dynamo

// DynamoDB attribute names used in key and update expressions across repos.
const (
	fieldUserID         = "user_id"
	fieldNotificationID = "notification_id"
	fieldToken          = "token"
	fieldRead           = "read"
	fieldReadAt         = "read_at"
)
