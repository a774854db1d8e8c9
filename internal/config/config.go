package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; the broker, verification and notification
// settings are optional and fall back to defaults.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	AMQPURL           string   // RabbitMQ URL; empty disables the AMQP notifier
	TabExchange       string   // topic exchange for tab events
	KafkaBroker       string   // Kafka bootstrap address; empty disables rating events
	KafkaRatingsTopic string   // topic for rating.created
	CORSOrigins       []string // allowed browser origins

	VerificationTTL      time.Duration // lifetime of a phone code
	VerificationAttempts int           // wrong guesses before a code locks
	ResendCooldown       time.Duration // minimum gap between codes per phone

	NotifyQueueSize   int  // buffered tab events before drops
	NotifyMaxAttempts int  // publish attempts per event
	TabEventLog       bool // run the tab-event audit consumer
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),                   // environment (dev/test/prod)
		Port:           must("APP_PORT"),                  // port to bind the HTTP server
		DBUser:         must("DB_USER"),                   // database user
		DBPass:         os.Getenv("DB_PASS"),              // database password (empty allowed)
		DBHost:         must("DB_HOST"),                   // database host
		DBPort:         must("DB_PORT"),                   // database port
		DBName:         must("DB_NAME"),                   // database name
		JWTSecret:      must("JWT_SECRET"),                // secret used for signing JWTs
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
		BcryptCost:     mustInt("BCRYPT_COST"),            // bcrypt cost factor

		AMQPURL:           amqpURL(),
		TabExchange:       envStr("TAB_EXCHANGE", "bartab.tabs"),
		KafkaBroker:       os.Getenv("KAFKA_BROKER"),
		KafkaRatingsTopic: envStr("KAFKA_RATINGS_TOPIC", "ratings.created"),
		CORSOrigins:       splitList(envStr("CORS_ALLOWED_ORIGINS", "*")),

		VerificationTTL:      envDur("VERIFICATION_CODE_TTL", 10*time.Minute),
		VerificationAttempts: envInt("VERIFICATION_MAX_ATTEMPTS", 5),
		ResendCooldown:       envDur("VERIFICATION_RESEND_COOLDOWN", 60*time.Second),

		NotifyQueueSize:   envInt("NOTIFY_QUEUE_SIZE", 256),
		NotifyMaxAttempts: envInt("NOTIFY_MAX_ATTEMPTS", 2),
		TabEventLog:       envBool("TAB_EVENT_LOG_ENABLED", false),
	}
}

// IsDevelopment reports whether the server runs in a dev environment,
// where verification codes are echoed back to the client.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development":
		return true
	}
	return false
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadDatabase reads only what the operator CLI needs: the DB_* variables
// and BCRYPT_COST (default 10).
func LoadDatabase() Config {
	return Config{
		DBUser:     must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"),
		DBHost:     must("DB_HOST"),
		DBPort:     must("DB_PORT"),
		DBName:     must("DB_NAME"),
		BcryptCost: envInt("BCRYPT_COST", 10),
	}
}
