package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Validation failures. All of them describe bad client input: the caller
// maps every one of them to a rejected-authentication outcome and none is
// worth retrying.
var (
	ErrMalformedPayload = errors.New("telegram: malformed init data")
	ErrMissingHash      = errors.New("telegram: init data has no hash")
	ErrInvalidSignature = errors.New("telegram: init data signature mismatch")
	ErrMissingAuthDate  = errors.New("telegram: init data has no auth_date")
	ErrInvalidAuthDate  = errors.New("telegram: init data auth_date is not a unix timestamp")
	ErrExpired          = errors.New("telegram: init data expired")
	ErrMissingUser      = errors.New("telegram: init data has no user")
	ErrMalformedUser    = errors.New("telegram: init data user is not valid JSON")
	ErrMissingUserID    = errors.New("telegram: init data user has no id")
)

// Principal is the authenticated identity embedded in init data. ID is
// guaranteed non-zero whenever Validate succeeds.
type Principal struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	LanguageCode string `json:"language_code"`
	IsPremium    bool   `json:"is_premium"`
	PhotoURL     string `json:"photo_url"`
}

// Validator checks Telegram WebApp init data against one bot token.
// It is stateless and safe for concurrent use.
type Validator struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

func NewValidator(botToken string, maxAge time.Duration) *Validator {
	return &Validator{botToken: botToken, maxAge: maxAge, now: time.Now}
}

// Validate verifies that raw was signed by Telegram for the configured bot
// and is still fresh, and returns the embedded user.
//
// raw must be the untouched wire string as the Telegram client sent it.
// Values that arrive percent-encoded must stay percent-encoded: the HMAC is
// computed over the encoded form, and decoding happens only afterwards for
// the fields this service consumes. A transport layer that re-decodes or
// re-encodes the payload breaks verification for every genuine request, and
// no attempt is made here to repair such input.
func (v *Validator) Validate(raw string) (Principal, error) {
	pairs, err := parsePairs(raw)
	if err != nil {
		return Principal{}, err
	}

	providedHash, ok := pairs["hash"]
	if !ok || providedHash == "" {
		return Principal{}, ErrMissingHash
	}
	// The hash pair never participates in its own signing string.
	delete(pairs, "hash")

	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+pairs[k])
	}
	signingString := strings.Join(parts, "\n")

	secretKey := sha256.Sum256([]byte(v.botToken))
	mac := hmac.New(sha256.New, secretKey[:])
	mac.Write([]byte(signingString))
	candidate := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal keeps the comparison constant-time so the validator cannot
	// be used as a timing oracle.
	if !hmac.Equal([]byte(candidate), []byte(providedHash)) {
		return Principal{}, ErrInvalidSignature
	}

	if err := v.checkFreshness(pairs["auth_date"]); err != nil {
		return Principal{}, err
	}

	return decodeUser(pairs["user"])
}

// parsePairs splits raw into its key=value pairs without decoding the
// values. Each pair is split on the first '=' only, since values may contain
// '='. On a repeated key the last occurrence wins; Telegram never repeats
// keys in practice, so the policy only matters for hand-built payloads.
func parsePairs(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrMalformedPayload
	}

	pairs := make(map[string]string)
	for _, seg := range strings.Split(raw, "&") {
		if seg == "" {
			continue
		}
		k, val, found := strings.Cut(seg, "=")
		if !found || k == "" {
			return nil, ErrMalformedPayload
		}
		pairs[k] = val
	}
	if len(pairs) == 0 {
		return nil, ErrMalformedPayload
	}
	return pairs, nil
}

// checkFreshness rejects payloads older than maxAge. An auth_date in the
// future passes as long as now-auth_date stays within the window; clock skew
// gets no special treatment.
func (v *Validator) checkFreshness(encoded string) error {
	if encoded == "" {
		return ErrMissingAuthDate
	}
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return ErrInvalidAuthDate
	}
	authDate, err := strconv.ParseInt(decoded, 10, 64)
	if err != nil {
		return ErrInvalidAuthDate
	}
	if v.now().Unix()-authDate > int64(v.maxAge/time.Second) {
		return ErrExpired
	}
	return nil
}

func decodeUser(encoded string) (Principal, error) {
	if encoded == "" {
		return Principal{}, ErrMissingUser
	}
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrMalformedUser, err)
	}
	var p Principal
	if err := json.Unmarshal([]byte(decoded), &p); err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrMalformedUser, err)
	}
	if p.ID == 0 {
		return Principal{}, ErrMissingUserID
	}
	return p, nil
}
