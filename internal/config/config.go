package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BotToken    string
	DatabaseURL string
	RedisURL    string
	ListenAddr  string
	CORSOrigins []string

	// InitDataMaxAge bounds how old a signed init-data payload may be
	// before it is rejected as expired.
	InitDataMaxAge time.Duration

	// PhotoStorageChatID is the Telegram chat used as blob storage for
	// uploaded profile photos. Zero disables the photo feature.
	PhotoStorageChatID int64

	SuggestHoldTTL time.Duration
}

func mustEnv(key string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		log.Fatalf("missing required env: %s", key)
	}
	return val
}

func normalizeDatabaseURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	// Neon sometimes shows `psql 'postgresql://...'` examples. Accept them too.
	if i := strings.Index(s, "postgresql://"); i >= 0 {
		s = s[i:]
	} else if i := strings.Index(s, "postgres://"); i >= 0 {
		s = s[i:]
	}

	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	if i := strings.IndexAny(s, " \t\r\n"); i >= 0 {
		s = strings.Trim(s[:i], `"'`)
	}

	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	q := u.Query()
	// pgx does not need channel_binding and may treat it as a runtime param.
	q.Del("channel_binding")
	u.RawQuery = q.Encode()
	return u.String()
}

func normalizeRedisURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	// Some consoles show `redis-cli -u redis://...` examples. Accept them too.
	// Also allow rediss:// (TLS).
	if i := strings.Index(s, "rediss://"); i >= 0 {
		s = s[i:]
	} else if i := strings.Index(s, "redis://"); i >= 0 {
		s = s[i:]
	}

	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	if i := strings.IndexAny(s, " \t\r\n"); i >= 0 {
		s = strings.Trim(s[:i], `"'`)
	}

	return s
}

func envInt64(key string, def int64) int64 {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func Load() Config {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	cfg := Config{
		BotToken:    mustEnv("BOT_TOKEN"),
		DatabaseURL: normalizeDatabaseURL(mustEnv("DATABASE_URL")),
		RedisURL:    normalizeRedisURL(os.Getenv("REDIS_URL")),
		ListenAddr:  ":" + port,
		CORSOrigins: parseCSV(strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))),

		InitDataMaxAge:     time.Duration(envInt64("INITDATA_MAX_AGE_SEC", 86400)) * time.Second,
		PhotoStorageChatID: envInt64("PHOTO_STORAGE_CHAT_ID", 0),
		SuggestHoldTTL:     time.Duration(envInt64("SUGGEST_HOLD_TTL_SEC", 120)) * time.Second,
	}

	if cfg.InitDataMaxAge <= 0 {
		panic("INITDATA_MAX_AGE_SEC must be > 0")
	}

	return cfg
}

func parseCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
