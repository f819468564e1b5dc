// Package config loads runtime configuration from flags, the environment and
// an optional .env file. Flags override environment values.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// DefaultMongoHost is the cluster the service was first deployed against.
const DefaultMongoHost = "cluster0.w5fhw.mongodb.net"

// Config holds the service configuration.
type Config struct {
	Addr    string
	LogPath string

	Store      string
	SQLitePath string
	MongoURI   string
	MongoHost  string
	DBUser     string
	DBPass     string
	DBName     string

	StoreTimeout    time.Duration
	ShutdownTimeout time.Duration

	EnableDelete bool
	EnableInsert bool
	RequireAuth  bool
	JWTSecret    string

	OtelEndpoint   string
	OtelAuthHeader string
	OtelInsecure   bool
}

// Usage is printed for -h.
const Usage = `Usage: bdmotors [flags]

Flags:
  -a, -addr <host:port>     listen address (env PORT, default: :5000)
  -s, -store <sqlite|mongo> document store backend (env STORE, default: sqlite)
  -d, -db <path>            SQLite database path (env SQLITE_PATH, default: bdmotors.sqlite3)
      -mongo-uri <uri>      MongoDB connection string (env MONGODB_URI; built from DB_USER,
                            DB_PASS and MONGODB_HOST when empty)
      -db-name <name>       MongoDB database name (env DB_NAME, default: bdMotors)
      -store-timeout <dur>  timeout for each store call (env STORE_TIMEOUT, default: 10s)
      -enable-delete        serve DELETE /inventory/{id} (env ENABLE_DELETE, default: true)
      -enable-insert        serve POST /product (env ENABLE_INSERT, default: true)
      -require-auth         require a bearer token for /product/myItem (env REQUIRE_AUTH)
      -otel-endpoint <h:p>  OTLP/HTTP trace collector (env OTEL_ENDPOINT, default: disabled)
  -l, -log <path>           log file path (default: no file, stdout/stderr only)
  -h, -help                 show this help and exit

Environment only: ACCESS_TOKEN_SECRET (JWT signing key), OTEL_AUTH_HEADER,
OTEL_INSECURE, SHUTDOWN_TIMEOUT. A .env file in the working directory (or
ENV_FILE) is read first and never overrides variables already set.
`

// Load builds the configuration. It returns flag.ErrHelp when -h was given.
func Load(args []string, output io.Writer) (*Config, error) {
	if err := loadDotEnv(getenv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		Addr:            ":" + getenv("PORT", "5000"),
		Store:           getenv("STORE", StoreSQLite),
		SQLitePath:      getenv("SQLITE_PATH", "bdmotors.sqlite3"),
		MongoURI:        getenv("MONGODB_URI", ""),
		MongoHost:       getenv("MONGODB_HOST", DefaultMongoHost),
		DBUser:          getenv("DB_USER", ""),
		DBPass:          getenv("DB_PASS", ""),
		DBName:          getenv("DB_NAME", "bdMotors"),
		StoreTimeout:    durenv("STORE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: durenv("SHUTDOWN_TIMEOUT", 5*time.Second),
		EnableDelete:    boolenv("ENABLE_DELETE", true),
		EnableInsert:    boolenv("ENABLE_INSERT", true),
		RequireAuth:     boolenv("REQUIRE_AUTH", false),
		JWTSecret:       getenv("ACCESS_TOKEN_SECRET", ""),
		OtelEndpoint:    getenv("OTEL_ENDPOINT", ""),
		OtelAuthHeader:  getenv("OTEL_AUTH_HEADER", ""),
		OtelInsecure:    boolenv("OTEL_INSECURE", false),
	}

	flags := flag.NewFlagSet("bdmotors", flag.ContinueOnError)
	flags.SetOutput(output)
	flags.Usage = func() { fmt.Fprint(output, Usage) }

	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	flags.StringVar(&cfg.Addr, "a", cfg.Addr, "")
	flags.StringVar(&cfg.Store, "store", cfg.Store, "")
	flags.StringVar(&cfg.Store, "s", cfg.Store, "")
	flags.StringVar(&cfg.SQLitePath, "db", cfg.SQLitePath, "")
	flags.StringVar(&cfg.SQLitePath, "d", cfg.SQLitePath, "")
	flags.StringVar(&cfg.MongoURI, "mongo-uri", cfg.MongoURI, "")
	flags.StringVar(&cfg.DBName, "db-name", cfg.DBName, "")
	flags.DurationVar(&cfg.StoreTimeout, "store-timeout", cfg.StoreTimeout, "")
	flags.BoolVar(&cfg.EnableDelete, "enable-delete", cfg.EnableDelete, "")
	flags.BoolVar(&cfg.EnableInsert, "enable-insert", cfg.EnableInsert, "")
	flags.BoolVar(&cfg.RequireAuth, "require-auth", cfg.RequireAuth, "")
	flags.StringVar(&cfg.OtelEndpoint, "otel-endpoint", cfg.OtelEndpoint, "")
	flags.StringVar(&cfg.LogPath, "log", "", "")
	flags.StringVar(&cfg.LogPath, "l", "", "")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", flags.Arg(0))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected features have what they need.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite store requires a database path")
		}
	case StoreMongo:
		if c.MongoURI == "" && (c.DBUser == "" || c.DBPass == "") {
			return errors.New("mongo store requires MONGODB_URI or DB_USER and DB_PASS")
		}
		if c.DBName == "" {
			return errors.New("mongo store requires a database name")
		}
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreSQLite, StoreMongo)
	}

	if c.RequireAuth && c.JWTSecret == "" {
		return errors.New("require-auth needs ACCESS_TOKEN_SECRET")
	}
	if c.StoreTimeout < 0 {
		return errors.New("store timeout must not be negative")
	}
	return nil
}

// MongoConnectionURI returns MongoURI, or an Atlas SRV URI built from the
// credentials and host.
func (c *Config) MongoConnectionURI() string {
	if c.MongoURI != "" {
		return c.MongoURI
	}
	u := url.URL{
		Scheme:   "mongodb+srv",
		User:     url.UserPassword(c.DBUser, c.DBPass),
		Host:     c.MongoHost,
		Path:     "/",
		RawQuery: "retryWrites=true&w=majority",
	}
	return u.String()
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func boolenv(key string, def bool) bool {
	b, err := strconv.ParseBool(getenv(key, ""))
	if err != nil {
		return def
	}
	return b
}

func durenv(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getenv(key, ""))
	if err != nil {
		return def
	}
	return d
}
