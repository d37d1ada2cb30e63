// Package config reads service settings from the environment.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const (
	BackendTables = "tables"
	BackendMongo  = "mongo"
	BackendMemory = "memory"

	EventsQueue = "queue"
	EventsNATS  = "nats"
)

type Config struct {
	Port  string
	Debug bool

	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	StoreBackend  string
	StorageConn   string
	UsersTable    string
	BoardsTable   string
	TasksTable    string
	MongoURI      string
	MongoDatabase string

	RedisConn     string
	CacheTTL      time.Duration
	TitleClaimTTL time.Duration

	FirebaseProjectID  string
	FirebaseAPIKey     string
	FirebaseAuthDomain string
	JWKSCacheTTL       time.Duration
	LocalAuthMode      string
	LocalAuthSecret    string

	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration

	EventsBackend string
	EventsQueue   string
	NATSURL       string
	NATSSubject   string
	EventsWorkers int
	EventsBuffer  int
	EventsTimeout time.Duration
}

// LocalAuth reports whether tokens are verified with the shared HS256 secret.
func (c *Config) LocalAuth() bool {
	return c.LocalAuthMode == "hs256"
}

// LoadDotEnv loads path into the environment when the file exists.
// Variables already set are not overridden.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// FromEnv reads the process environment.
func FromEnv() (*Config, error) {
	return Parse(os.Getenv)
}

// Parse builds a Config from getenv and validates it.
func Parse(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}
	c := &Config{
		Port:  r.str("PORT", "8080"),
		Debug: r.boolean("DEBUG"),

		LogFormat:     r.str("LOG_FORMAT", "text"),
		LogFile:       getenv("LOG_FILE"),
		LogMaxSizeMB:  r.positiveInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: r.positiveInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: r.positiveInt("LOG_MAX_AGE_DAYS", 28),

		StoreBackend:  r.str("STORE_BACKEND", BackendTables),
		StorageConn:   getenv("STORAGE_CONNECTION_STRING"),
		UsersTable:    r.str("USERS_TABLE", "users"),
		BoardsTable:   r.str("BOARDS_TABLE", "taskBoards"),
		TasksTable:    r.str("TASKS_TABLE", "tasks"),
		MongoURI:      getenv("MONGO_URI"),
		MongoDatabase: r.str("MONGO_DB_NAME", "taskboard"),

		RedisConn:     getenv("REDIS_CONNECTION_STRING"),
		CacheTTL:      r.duration("DIRECTORY_CACHE_TTL", time.Hour, false),
		TitleClaimTTL: r.duration("TITLE_CLAIM_TTL", 10*time.Second, true),

		FirebaseProjectID:  getenv("FIREBASE_PROJECT_ID"),
		FirebaseAPIKey:     getenv("FIREBASE_API_KEY"),
		FirebaseAuthDomain: getenv("FIREBASE_AUTH_DOMAIN"),
		JWKSCacheTTL:       r.duration("JWKS_CACHE_TTL", 15*time.Minute, false),
		LocalAuthMode:      strings.ToLower(getenv("LOCAL_AUTH_MODE")),
		LocalAuthSecret:    getenv("LOCAL_AUTH_SHARED_SECRET"),

		BreakerMaxFailures: r.positiveInt("BREAKER_MAX_FAILURES", 5),
		BreakerOpenTimeout: r.duration("BREAKER_OPEN_TIMEOUT", 10*time.Second, false),

		EventsBackend: strings.ToLower(getenv("EVENTS_BACKEND")),
		EventsQueue:   r.str("EVENTS_QUEUE", "board-activity"),
		NATSURL:       r.str("NATS_URL", "nats://localhost:4222"),
		NATSSubject:   r.str("NATS_SUBJECT", "taskboard.activity"),
		EventsWorkers: r.positiveInt("EVENTS_WORKERS", 4),
		EventsBuffer:  r.positiveInt("EVENTS_BUFFER", 256),
		EventsTimeout: r.duration("EVENTS_TIMEOUT", 5*time.Second, false),
	}
	if r.err != nil {
		return nil, r.err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendTables:
		if c.StorageConn == "" {
			return errors.New("missing storage config: STORAGE_CONNECTION_STRING")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New("missing mongo config: MONGO_URI")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.LocalAuthMode {
	case "":
		if c.FirebaseProjectID == "" {
			return errors.New("missing identity config: FIREBASE_PROJECT_ID")
		}
	case "hs256":
		if c.LocalAuthSecret == "" {
			return errors.New("missing identity config: LOCAL_AUTH_SHARED_SECRET")
		}
	default:
		return fmt.Errorf("invalid LOCAL_AUTH_MODE %q", c.LocalAuthMode)
	}

	switch c.EventsBackend {
	case "":
	case EventsQueue:
		if c.StorageConn == "" {
			return errors.New("missing queue config: STORAGE_CONNECTION_STRING")
		}
	case EventsNATS:
	default:
		return fmt.Errorf("invalid EVENTS_BACKEND %q", c.EventsBackend)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// RedisOptions accepts a redis URL or the Azure style
// "host:port,password=...,ssl=true" connection string.
func RedisOptions(conn string) *redis.Options {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

// reader keeps the first parse error so Parse can report it once.
type reader struct {
	getenv func(string) string
	err    error
}

func (r *reader) str(key, def string) string {
	if v := r.getenv(key); v != "" {
		return v
	}
	return def
}

func (r *reader) boolean(key string) bool {
	v, err := strconv.ParseBool(r.getenv(key))
	return err == nil && v
}

func (r *reader) positiveInt(key string, def int) int {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		r.fail(fmt.Errorf("invalid %s: must be a positive integer", key))
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration, allowZero bool) time.Duration {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		r.fail(fmt.Errorf("invalid %s: %q", key, v))
		return def
	}
	return d
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
