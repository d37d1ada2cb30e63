package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParseDefaults(t *testing.T) {
	c, err := Parse(env(map[string]string{
		"STORAGE_CONNECTION_STRING": "UseDevelopmentStorage=true",
		"FIREBASE_PROJECT_ID":       "demo",
	}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Port != "8080" || c.StoreBackend != BackendTables {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.UsersTable != "users" || c.BoardsTable != "taskBoards" || c.TasksTable != "tasks" {
		t.Fatalf("unexpected table names %+v", c)
	}
	if c.TitleClaimTTL != 10*time.Second || c.CacheTTL != time.Hour || c.JWKSCacheTTL != 15*time.Minute {
		t.Fatalf("unexpected durations %+v", c)
	}
	if c.BreakerMaxFailures != 5 || c.EventsWorkers != 4 || c.EventsBuffer != 256 {
		t.Fatalf("unexpected sizes %+v", c)
	}
	if c.LocalAuth() {
		t.Fatal("local auth should be off")
	}
}

func TestParseValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"tables without connection", map[string]string{"FIREBASE_PROJECT_ID": "p"}},
		{"mongo without uri", map[string]string{"STORE_BACKEND": "mongo", "FIREBASE_PROJECT_ID": "p"}},
		{"unknown backend", map[string]string{"STORE_BACKEND": "sql", "FIREBASE_PROJECT_ID": "p"}},
		{"no identity", map[string]string{"STORE_BACKEND": "memory"}},
		{"hs256 without secret", map[string]string{"STORE_BACKEND": "memory", "LOCAL_AUTH_MODE": "hs256"}},
		{"bad int", map[string]string{"STORE_BACKEND": "memory", "FIREBASE_PROJECT_ID": "p", "EVENTS_WORKERS": "0"}},
		{"bad duration", map[string]string{"STORE_BACKEND": "memory", "FIREBASE_PROJECT_ID": "p", "BREAKER_OPEN_TIMEOUT": "soon"}},
		{"zero cache ttl", map[string]string{"STORE_BACKEND": "memory", "FIREBASE_PROJECT_ID": "p", "DIRECTORY_CACHE_TTL": "0s"}},
		{"queue without connection", map[string]string{"STORE_BACKEND": "memory", "FIREBASE_PROJECT_ID": "p", "EVENTS_BACKEND": "queue"}},
		{"unknown events", map[string]string{"STORE_BACKEND": "memory", "FIREBASE_PROJECT_ID": "p", "EVENTS_BACKEND": "kafka"}},
		{"bad log format", map[string]string{"STORE_BACKEND": "memory", "FIREBASE_PROJECT_ID": "p", "LOG_FORMAT": "xml"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(env(tc.env)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestParseLocalAuthAndZeroClaimTTL(t *testing.T) {
	c, err := Parse(env(map[string]string{
		"STORE_BACKEND":            "memory",
		"LOCAL_AUTH_MODE":          "HS256",
		"LOCAL_AUTH_SHARED_SECRET": "secret",
		"TITLE_CLAIM_TTL":          "0s",
		"DEBUG":                    "true",
	}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !c.LocalAuth() || c.TitleClaimTTL != 0 || !c.Debug {
		t.Fatalf("unexpected config %+v", c)
	}
}

func TestRedisOptions(t *testing.T) {
	opts := RedisOptions("cache.example:6380,password=pw,ssl=True,abortConnect=False")
	if opts.Addr != "cache.example:6380" || opts.Password != "pw" || opts.TLSConfig == nil {
		t.Fatalf("unexpected options %+v", opts)
	}
	opts = RedisOptions("redis://localhost:6379/2")
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.TLSConfig != nil {
		t.Fatalf("unexpected url options %+v", opts)
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TASKBOARD_TEST_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("TASKBOARD_TEST_DOTENV") })
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if os.Getenv("TASKBOARD_TEST_DOTENV") != "loaded" {
		t.Fatal("expected variable from .env")
	}
}
