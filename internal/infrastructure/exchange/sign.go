package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

const wsVerifyPath = "/users/self/verify"

// Signer computes OKX v5 request signatures. Credentials may be empty: Ready
// reports whether private calls are possible, and callers must check it
// instead of signing with a blank secret.
type Signer struct {
	apiKey     string
	secretKey  string
	passphrase string
}

func NewSigner(apiKey, secretKey, passphrase string) *Signer {
	return &Signer{apiKey: apiKey, secretKey: secretKey, passphrase: passphrase}
}

// Ready reports whether all three credentials are configured. Missing keys
// are a capability check, not an error.
func (s *Signer) Ready() bool {
	return s.apiKey != "" && s.secretKey != "" && s.passphrase != ""
}

func (s *Signer) APIKey() string     { return s.apiKey }
func (s *Signer) Passphrase() string { return s.passphrase }

// SignREST signs timestamp + METHOD + path + body with HMAC-SHA256 over the
// secret key, base64-encoded. path must include the query string when one is
// sent.
func (s *Signer) SignREST(timestamp, method, path, body string) string {
	return s.sign(timestamp + strings.ToUpper(method) + path + body)
}

// SignWSLogin signs the fixed websocket login prehash. timestamp is unix
// seconds as decimal text.
func (s *Signer) SignWSLogin(timestamp string) string {
	return s.sign(timestamp + "GET" + wsVerifyPath)
}

func (s *Signer) sign(prehash string) string {
	mac := hmac.New(sha256.New, []byte(s.secretKey))
	mac.Write([]byte(prehash))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ISOTimestamp formats t the way OK-ACCESS-TIMESTAMP wants it: ISO-8601 UTC
// with millisecond precision and a Z suffix.
func ISOTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// WSTimestamp is the login-frame timestamp: unix seconds as text.
func WSTimestamp(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
