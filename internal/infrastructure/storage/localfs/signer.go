package localfs

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Signer produces and checks expiring HMAC-SHA256 links of the form
// <baseURL><prefix><key>?expires=<unix>&signature=<hex>.
type Signer struct {
	secret  []byte
	baseURL string
	prefix  string
}

func NewSigner(secret, baseURL, prefix string) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("signing key is required")
	}
	if prefix == "" {
		prefix = "/v1/objects/"
	}
	return &Signer{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		prefix:  prefix,
	}, nil
}

func (s *Signer) Sign(key string, expiresAt time.Time) string {
	expires := strconv.FormatInt(expiresAt.Unix(), 10)
	q := url.Values{}
	q.Set("expires", expires)
	q.Set("signature", s.mac(key, expires))
	return s.baseURL + s.prefix + escapeKey(key) + "?" + q.Encode()
}

// Verify reports whether signature is valid for key and has not expired at now.
func (s *Signer) Verify(key, expires, signature string, now time.Time) bool {
	unix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	if !now.Before(time.Unix(unix, 0)) {
		return false
	}
	want := s.mac(key, expires)
	return hmac.Equal([]byte(want), []byte(signature))
}

func (s *Signer) mac(key, expires string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(key))
	h.Write([]byte{'\n'})
	h.Write([]byte(expires))
	return hex.EncodeToString(h.Sum(nil))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
