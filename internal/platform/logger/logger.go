package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a key/value logger. Values under person or credential keys are
// redacted, and actor ids are hashed before zap sees them.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
	redact        *redactor
}

var levels = map[string]zapcore.Level{
	"prod":       zap.InfoLevel,
	"production": zap.InfoLevel,
	"test":       zap.WarnLevel,
}

// New builds a zap-backed logger. mode is prod|production, test, or anything
// else for development. LOG_REDACTION_ENABLED=false and LOG_HASH_SALT tune redaction.
func New(mode string) (*Logger, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	cfg := zap.NewDevelopmentConfig()
	if mode == "prod" || mode == "production" {
		cfg = zap.NewProductionConfig()
	}
	level, ok := levels[mode]
	if !ok {
		level = zap.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar(), redact: redactorFromEnv()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), redact: &redactor{enabled: true}}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.SugaredLogger.Debugw(msg, l.redact.kvs(kv)...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.SugaredLogger.Infow(msg, l.redact.kvs(kv)...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.SugaredLogger.Warnw(msg, l.redact.kvs(kv)...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.SugaredLogger.Errorw(msg, l.redact.kvs(kv)...) }
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.SugaredLogger.Fatalw(msg, l.redact.kvs(kv)...) }

func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.redact.kvs(kv)...), redact: l.redact}
}

// redactedKeyParts match credentials and family content: person names, dates,
// places and biographies never reach logs in clear text.
var redactedKeyParts = []string{
	"token", "authorization", "password", "secret", "email",
	"given_name", "middle_name", "surname", "nickname", "alternate_names", "display_name",
	"birth_date", "death_date", "birth_place", "death_place", "bio",
}

// hashedKeyParts identify people operating the system. Hashes keep them
// correlatable across log lines.
var hashedKeyParts = []string{"actor_id", "user_id", "dismissed_by"}

type redactor struct {
	enabled bool
	salt    string
}

func redactorFromEnv() *redactor {
	r := &redactor{enabled: true, salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}
	switch strings.TrimSpace(strings.ToLower(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		r.enabled = false
	}
	return r
}

// kvs rewrites values pairwise. A trailing key without a value is kept as is.
func (r *redactor) kvs(kv []interface{}) []interface{} {
	if r == nil || !r.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i+1 == len(kv) {
			out = append(out, kv[i])
			break
		}
		key := toString(kv[i])
		out = append(out, key, r.value(normalizeKey(key), kv[i+1]))
	}
	return out
}

func (r *redactor) value(key string, val interface{}) interface{} {
	switch {
	case key == "":
		return val
	case containsAny(key, redactedKeyParts):
		return "[REDACTED]"
	case containsAny(key, hashedKeyParts):
		return r.hash(val)
	}
	if m, ok := val.(map[string]interface{}); ok {
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			out[k] = r.value(normalizeKey(k), v)
		}
		return out
	}
	return val
}

func (r *redactor) hash(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(r.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func normalizeKey(k string) string { return strings.ToLower(strings.TrimSpace(k)) }

func containsAny(key string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
