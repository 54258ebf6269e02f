package config

import (
	"errors"
	"fmt"
	"strings"

	"noticeboard/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

type Config struct {
	StoreDriver     string `validate:"oneof=postgres sqlite mongo"`
	DatabaseURL     string `validate:"required"`
	MongoDatabase   string `validate:"required_if=StoreDriver mongo"`
	MongoCollection string `validate:"required_if=StoreDriver mongo"`
	ConnectAttempts int    `validate:"min=1"`

	Port        int    `validate:"min=1,max=65535"`
	APIPrefix   string `validate:"startswith=/"`
	CORSOrigins []string
	LogLevel    string

	Web WebConfig
}

type WebConfig struct {
	Port      int    `validate:"min=1,max=65535"`
	APIURL    string `validate:"required,url"`
	LiveURL   string `validate:"omitempty,url"`
	CSRFKey   []byte `validate:"omitempty,len=32"`
	CookieKey []byte `validate:"omitempty,len=32|len=64"`
	Secure    bool
}

// Bindings between viper keys and their environment variables.
var envKeys = map[string]string{
	"store.driver":           "STORE_DRIVER",
	"database.url":           "DATABASE_URL",
	"mongo.database":         "MONGO_DATABASE",
	"mongo.collection":       "MONGO_COLLECTION",
	"store.connect_attempts": "STORE_CONNECT_ATTEMPTS",
	"port":                   "PORT",
	"api.prefix":             "API_PREFIX",
	"cors.origins":           "CORS_ORIGINS",
	"log.level":              "LOG_LEVEL",
	"web.port":               "WEB_PORT",
	"web.api_url":            "WEB_API_URL",
	"web.live_url":           "WEB_LIVE_URL",
	"web.csrf_key":           "WEB_CSRF_KEY",
	"web.cookie_key":         "WEB_COOKIE_KEY",
	"web.secure":             "WEB_SECURE",
}

// New returns a viper instance with defaults set and every key bound to its
// environment variable. Command flags are bound on top of it.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("database.url", "noticeboard.db")
	v.SetDefault("mongo.database", "noticeboard")
	v.SetDefault("mongo.collection", "notes")
	v.SetDefault("store.connect_attempts", 1)
	v.SetDefault("port", 5000)
	v.SetDefault("api.prefix", "/api/notes")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("web.port", 3000)
	v.SetDefault("web.api_url", "http://localhost:5000/api")
	v.SetDefault("web.live_url", "")
	v.SetDefault("web.csrf_key", "")
	v.SetDefault("web.cookie_key", "")
	v.SetDefault("web.secure", false)

	for key, env := range envKeys {
		// BindEnv only errors without a key.
		_ = v.BindEnv(key, env)
	}
	return v
}

// LoadDotenv reads .env files into the process environment. The error is
// informational: running without a .env file is normal.
func LoadDotenv(files ...string) error {
	return godotenv.Load(files...)
}

// Load builds a Config from v. Empty UI keys stay empty until
// WebConfig.ResolveKeys runs.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		StoreDriver:     strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))),
		DatabaseURL:     strings.TrimSpace(v.GetString("database.url")),
		MongoDatabase:   v.GetString("mongo.database"),
		MongoCollection: v.GetString("mongo.collection"),
		ConnectAttempts: v.GetInt("store.connect_attempts"),
		Port:            v.GetInt("port"),
		APIPrefix:       v.GetString("api.prefix"),
		CORSOrigins:     splitList(v.GetString("cors.origins")),
		LogLevel:        v.GetString("log.level"),
		Web: WebConfig{
			Port:    v.GetInt("web.port"),
			APIURL:  strings.TrimSpace(v.GetString("web.api_url")),
			LiveURL: strings.TrimSpace(v.GetString("web.live_url")),
			Secure:  v.GetBool("web.secure"),
		},
	}

	if key := v.GetString("web.csrf_key"); key != "" {
		cfg.Web.CSRFKey = []byte(key)
	}
	if key := v.GetString("web.cookie_key"); key != "" {
		cfg.Web.CookieKey = []byte(key)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fieldEnv(fe.StructNamespace()), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// fieldEnv names the environment variable behind a Config field.
func fieldEnv(ns string) string {
	switch strings.TrimPrefix(ns, "Config.") {
	case "StoreDriver":
		return "STORE_DRIVER"
	case "DatabaseURL":
		return "DATABASE_URL"
	case "MongoDatabase":
		return "MONGO_DATABASE"
	case "MongoCollection":
		return "MONGO_COLLECTION"
	case "ConnectAttempts":
		return "STORE_CONNECT_ATTEMPTS"
	case "Port":
		return "PORT"
	case "APIPrefix":
		return "API_PREFIX"
	case "Web.Port":
		return "WEB_PORT"
	case "Web.APIURL":
		return "WEB_API_URL"
	case "Web.LiveURL":
		return "WEB_LIVE_URL"
	case "Web.CSRFKey":
		return "WEB_CSRF_KEY"
	case "Web.CookieKey":
		return "WEB_COOKIE_KEY"
	}
	return ns
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ResolveKeys fills missing UI keys with random ones. Forms and flash
// cookies issued with them stop validating after a restart.
func (w *WebConfig) ResolveKeys() {
	if len(w.CSRFKey) == 0 {
		logger.Sugar.Warn("WEB_CSRF_KEY is not set, using a random key")
		w.CSRFKey = securecookie.GenerateRandomKey(32)
	}
	if len(w.CookieKey) == 0 {
		logger.Sugar.Warn("WEB_COOKIE_KEY is not set, using a random key")
		w.CookieKey = securecookie.GenerateRandomKey(32)
	}
}
