package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Arango ArangoConfig
	JWT    JWTConfig
	Auth   AuthConfig
	Log    LogConfig
	OTEL   OTELConfig
}

type ServerConfig struct {
	Port           string `validate:"required,numeric"`
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// DBConfig points at the PostgreSQL database holding the request history.
// History is disabled when Host is empty.
type DBConfig struct {
	Host    string
	Port    int `validate:"min=1,max=65535"`
	User    string
	Pass    string
	Name    string
	SSLMode string
	DSN     string
}

func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

// ArangoConfig describes the endpoint the gateway relays to.
type ArangoConfig struct {
	Alias       string `validate:"required"`
	Host        string `validate:"required"`
	Port        int    `validate:"min=1,max=65535"`
	Secure      bool
	Database    string
	User        string
	Pass        string
	JWTSecret   string
	UseWebProxy bool
}

type JWTConfig struct {
	SecretKey            string        `validate:"required,min=16"`
	AccessTokenExpiresIn time.Duration `validate:"gt=0"`
}

// AuthConfig holds the single gateway operator account.
type AuthConfig struct {
	Username     string `validate:"required"`
	PasswordHash string `validate:"required"`
}

type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Pretty bool
}

type OTELConfig struct {
	Enabled     bool
	Endpoint    string  `validate:"required_if=Enabled true"`
	Insecure    bool
	ServiceName string  `validate:"required"`
	SampleRatio float64 `validate:"gte=0,lte=1"`
}

// MaxRelayTimeout bounds a single relayed ArangoDB call. The server write
// timeout must leave room for it.
const MaxRelayTimeout = 90 * time.Second

var validate = validator.New()

func LoadConfig() (*Config, error) {
	dbPort, err := getint("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	arangoPort, err := getint("ARANGO_PORT", 8529)
	if err != nil {
		return nil, err
	}

	dbConfig := DBConfig{
		Host:    os.Getenv("DB_HOST"),
		Port:    dbPort,
		User:    os.Getenv("DB_USER"),
		Pass:    os.Getenv("DB_PASS"),
		Name:    os.Getenv("DB_NAME"),
		SSLMode: getenv("DB_SSLMODE", "disable"),
	}
	if dbConfig.Enabled() {
		dbConfig.DSN = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			dbConfig.Host, dbConfig.Port, dbConfig.User, dbConfig.Pass, dbConfig.Name, dbConfig.SSLMode,
		)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getenv("SERVER_PORT", "8080"),
			ReadTimeout:    getdur("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getdur("SERVER_WRITE_TIMEOUT", MaxRelayTimeout+5*time.Second),
			IdleTimeout:    getdur("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "*")),
		},
		DB: dbConfig,
		Arango: ArangoConfig{
			Alias:       getenv("ARANGO_ALIAS", "default"),
			Host:        os.Getenv("ARANGO_HOST"),
			Port:        arangoPort,
			Secure:      getbool("ARANGO_SECURE", false),
			Database:    os.Getenv("ARANGO_DATABASE"),
			User:        os.Getenv("ARANGO_USER"),
			Pass:        os.Getenv("ARANGO_PASS"),
			JWTSecret:   os.Getenv("ARANGO_JWT_SECRET"),
			UseWebProxy: getbool("ARANGO_USE_PROXY", false),
		},
		JWT: JWTConfig{
			SecretKey:            os.Getenv("JWT_SECRET"),
			AccessTokenExpiresIn: getdur("JWT_EXPIRES_IN", time.Hour),
		},
		Auth: AuthConfig{
			Username:     os.Getenv("GATEWAY_USER"),
			PasswordHash: os.Getenv("GATEWAY_PASSWORD_HASH"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getenv("LOG_LEVEL", "info")),
			Pretty: getbool("LOG_PRETTY", false),
		},
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "arango-gateway"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	if cfg.Log.Level == "warning" {
		cfg.Log.Level = "warn"
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Server.WriteTimeout != 0 && cfg.Server.WriteTimeout <= MaxRelayTimeout {
		return nil, fmt.Errorf("invalid configuration: SERVER_WRITE_TIMEOUT %v must exceed the relay limit of %v", cfg.Server.WriteTimeout, MaxRelayTimeout)
	}

	return cfg, nil
}

// LoadArangoConfig reads only the ArangoDB endpoint settings, for tools that
// do not run the gateway.
func LoadArangoConfig() (*ArangoConfig, error) {
	port, err := getint("ARANGO_PORT", 8529)
	if err != nil {
		return nil, err
	}

	cfg := &ArangoConfig{
		Alias:       getenv("ARANGO_ALIAS", "default"),
		Host:        getenv("ARANGO_HOST", "localhost"),
		Port:        port,
		Secure:      getbool("ARANGO_SECURE", false),
		Database:    os.Getenv("ARANGO_DATABASE"),
		User:        os.Getenv("ARANGO_USER"),
		Pass:        os.Getenv("ARANGO_PASS"),
		JWTSecret:   os.Getenv("ARANGO_JWT_SECRET"),
		UseWebProxy: getbool("ARANGO_USE_PROXY", false),
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getint(k string, def int) (int, error) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", k, err)
	}
	return i, nil
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
