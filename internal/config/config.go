package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	// AdminEmail is the only identity allowed to request an admin passcode.
	AdminEmail string

	JWTSecret         string // HS256 when set, otherwise RS256 from the key files
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiresIn      string // label echoed back to clients, e.g. "24h" or "7d"
	JWTExpiry         time.Duration

	OTPTTL           time.Duration
	OTPHashCost      int
	OTPSweepInterval time.Duration

	SMTPHost       string
	SMTPPort       string
	SMTPFrom       string
	SMTPUsername   string
	SMTPPassword   string
	SMTPMaxRetries int

	PushProvider              string // "sns", "webpush" or empty to disable push
	AWSRegion                 string
	AWSEndpointURL            string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID            string
	AWSSecretKey              string
	SNSPlatformApplicationARN string
	PushConcurrency           int
	VAPIDPublicKey            string
	VAPIDPrivateKey           string
	VAPIDSubject              string

	StoreBackend string // "memory" or "dynamo"
	DynamoTables DynamoTables

	AllowedOrigins  []string // CORS allowed origins
	WSPingInterval  time.Duration
	WSPruneInterval time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int

	// TrustProxyHeaders lets X-Forwarded-For / X-Real-IP replace the peer
	// address. Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Devices       string
	Notifications string
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load reads all configuration from environment variables.
func Load() *Config {
	expiresIn := getEnv("JWT_EXPIRES_IN", "24h")
	return &Config{
		AppPort:  getEnv("APP_PORT", "5000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AdminEmail: strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", ""))),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiresIn:      expiresIn,
		JWTExpiry:         ParseExpiry(expiresIn, 24*time.Hour),

		OTPTTL:           getEnvDuration("OTP_TTL", 5*time.Minute),
		OTPHashCost:      getEnvInt("OTP_HASH_COST", bcrypt.MinCost),
		OTPSweepInterval: getEnvDuration("OTP_SWEEP_INTERVAL", time.Minute),

		SMTPHost:       getEnv("SMTP_HOST", "localhost"),
		SMTPPort:       getEnv("SMTP_PORT", "1025"),
		SMTPFrom:       getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SMTPMaxRetries: getEnvInt("SMTP_MAX_RETRIES", 3),

		PushProvider:              strings.ToLower(getEnv("PUSH_PROVIDER", "")),
		AWSRegion:                 getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL:            getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID:            getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:              getEnv("AWS_SECRET_ACCESS_KEY", ""),
		SNSPlatformApplicationARN: getEnv("SNS_PLATFORM_APPLICATION_ARN", ""),
		PushConcurrency:           getEnvInt("PUSH_CONCURRENCY", 8),
		VAPIDPublicKey:            getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey:           getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:              getEnv("VAPID_SUBJECT", "mailto:noreply@example.com"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", "memory")),
		DynamoTables: DynamoTables{
			Devices:       getEnv("DYNAMO_TABLE_DEVICES", "devices"),
			Notifications: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
		},

		AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		WSPingInterval:  getEnvDuration("WS_PING_INTERVAL", 25*time.Second),
		WSPruneInterval: getEnvDuration("WS_PRUNE_INTERVAL", 30*time.Second),
		RateLimitRPS:    getEnvFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 5),

		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
	}
}

// ParseExpiry understands Go durations plus a trailing "d" for whole days.
// Unparseable or non-positive values yield fallback.
func ParseExpiry(s string, fallback time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		if n, err := strconv.Atoi(strings.TrimSuffix(s, "d")); err == nil && n > 0 {
			return time.Duration(n) * 24 * time.Hour
		}
		return fallback
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
