package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var Config *ServerConfig

// StoreBackend selects the document store implementation.
type StoreBackend string

const (
	StoreFirestore StoreBackend = "firestore"
	StoreMemory    StoreBackend = "memory"
)

// ServerConfig is a struct that contains configuration values for the server.
type ServerConfig struct {
	// AllowedOrigins is a list of URLs that the server will accept requests from.
	AllowedOrigins []string
	// AllowedEmailDomains is a list of email domains that the server will allow account registrations from. A
	// domain matches itself and any subdomain, so "edu" admits every .edu address. If empty, every address is
	// rejected.
	AllowedEmailDomains []string
	// SessionCookieName is the name to use for the session cookie.
	SessionCookieName string
	// SessionCookieExpiration is the amount of time a session cookie is valid. Max 14 days.
	SessionCookieExpiration time.Duration
	// IsHTTPS marks cookies as Secure and SameSite=None.
	IsHTTPS bool
	// Port is the port the server should run on.
	Port int

	// CredentialsFile is the path to the Firebase service account key.
	CredentialsFile string
	// ProjectID overrides the project ID read from the credentials.
	ProjectID string
	// Store selects where meetings are persisted.
	Store StoreBackend

	// NotificationDelay simulates the latency of the e-mail provider.
	NotificationDelay time.Duration
	// NotificationTimeout bounds a single notification dispatch.
	NotificationTimeout time.Duration
	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration
}

func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		AllowedOrigins:          []string{"http://localhost:5173"},
		AllowedEmailDomains:     []string{"edu"},
		SessionCookieName:       "studygroup-session",
		SessionCookieExpiration: time.Hour * 24 * 14,
		Port:                    8080,
		CredentialsFile:         "firebase-config.json",
		Store:                   StoreFirestore,
		NotificationDelay:       time.Second,
		NotificationTimeout:     time.Second * 10,
		ShutdownTimeout:         time.Second * 15,
	}
}

// Load returns the default configuration overridden by environment variables. Variables from a .env file in the
// working directory are loaded first, without clobbering variables that are already set.
func Load() *ServerConfig {
	if err := godotenv.Load(); err == nil {
		log.Println("📄 Loaded environment from .env")
	}

	c := DefaultConfig()
	c.applyEnv(os.LookupEnv)
	return c
}

func (c *ServerConfig) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("ALLOWED_EMAIL_DOMAINS"); ok {
		c.AllowedEmailDomains = splitList(v)
	}
	if v, ok := lookup("SESSION_COOKIE_NAME"); ok && v != "" {
		c.SessionCookieName = v
	}
	if v, ok := lookup("SESSION_COOKIE_EXPIRATION"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.SessionCookieExpiration = d
		} else {
			log.Printf("⚠️ Ignoring SESSION_COOKIE_EXPIRATION=%q: %v\n", v, err)
		}
	}
	if v, ok := lookup("IS_HTTPS"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.IsHTTPS = b
		}
	}
	if v, ok := lookup("PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		} else {
			log.Printf("⚠️ Ignoring PORT=%q: %v\n", v, err)
		}
	}
	if v, ok := lookup("FIREBASE_CREDENTIALS_FILE"); ok && v != "" {
		c.CredentialsFile = v
	}
	if v, ok := lookup("FIREBASE_PROJECT_ID"); ok {
		c.ProjectID = v
	}
	if v, ok := lookup("STORE"); ok && v != "" {
		c.Store = StoreBackend(strings.ToLower(v))
	}
	if v, ok := lookup("NOTIFICATION_DELAY"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.NotificationDelay = d
		}
	}
	if v, ok := lookup("NOTIFICATION_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.NotificationTimeout = d
		}
	}
	if v, ok := lookup("SHUTDOWN_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.ShutdownTimeout = d
		} else {
			log.Printf("⚠️ Ignoring SHUTDOWN_TIMEOUT=%q: %v\n", v, err)
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func init() {
	log.Println("🙂️ No configuration provided. Using the default configuration.")
	Config = DefaultConfig()
}
