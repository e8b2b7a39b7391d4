package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
)

const redacted = "[REDACTED]"

// Substrings of log keys whose values never reach the sink. Actor records
// carry personal data, so identity fields are treated like credentials.
var baseRedactKeys = []string{
	"token", "authorization", "password", "secret", "cookie", "dsn",
	"email", "phone", "national_id", "nid", "birth", "passport",
}

// Client addresses are hashed so repeated requests can still be correlated.
var hashKeys = []string{"client_ip", "remote_addr"}

type redactor struct {
	off  bool
	salt string
	keys []string
}

var (
	redactOnce sync.Once
	defaultRed *redactor
)

func redactorFromEnv() *redactor {
	r := &redactor{
		salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT")),
		keys: append([]string(nil), baseRedactKeys...),
	}
	switch normKey(os.Getenv("LOG_REDACTION_ENABLED")) {
	case "0", "false", "no", "off":
		r.off = true
	}
	for _, k := range strings.Split(os.Getenv("LOG_REDACT_KEYS"), ",") {
		if k = normKey(k); k != "" {
			r.keys = append(r.keys, k)
		}
	}
	return r
}

func sanitizeKVs(kv []interface{}) []interface{} {
	redactOnce.Do(func() { defaultRed = redactorFromEnv() })
	return defaultRed.kvs(kv)
}

// kvs rewrites the values of a zap key/value list. A trailing key without a
// value is kept as is.
func (r *redactor) kvs(kv []interface{}) []interface{} {
	if r.off || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 1; i < len(out); i += 2 {
		out[i] = r.value(normKey(toString(out[i-1])), out[i])
	}
	return out
}

func (r *redactor) value(key string, val interface{}) interface{} {
	switch {
	case key == "":
	case r.secret(key):
		return redacted
	case key == "ip" || containsAny(key, hashKeys):
		return r.hash(val)
	}
	switch v := val.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = r.value(normKey(k), inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = r.value("", inner)
		}
		return out
	case string:
		if looksLikeJWT(v) {
			return redacted
		}
	}
	return val
}

func (r *redactor) secret(key string) bool { return containsAny(key, r.keys) }

func (r *redactor) hash(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(r.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:6])
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func normKey(k string) string { return strings.ToLower(strings.TrimSpace(k)) }

// looksLikeJWT matches three dot separated segments with a long header and
// claims part.
func looksLikeJWT(s string) bool {
	head, rest, ok := strings.Cut(s, ".")
	if !ok {
		return false
	}
	claims, sig, ok := strings.Cut(rest, ".")
	return ok && !strings.Contains(sig, ".") && len(head) > 10 && len(claims) > 10
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
