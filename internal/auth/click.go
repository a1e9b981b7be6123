// Package auth signs and verifies the tracked product links placed in
// recommendation emails.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrBadToken   = errors.New("bad token")
	ErrBadSig     = errors.New("invalid signature")
	ErrExpired    = errors.New("expired")
	ErrBadPayload = errors.New("bad payload")
)

// Click is what a signed link attests: subject was shown product by provider
type Click struct {
	SubjectID string
	ProductID string
	Provider  string
}

type ClickLink struct {
	Secret  []byte
	BaseURL string // eg., http://localhost:8080

	now func() time.Time
}

// NewClickLink creates a signer for links rooted at baseURL
func NewClickLink(secret []byte, baseURL string) ClickLink {
	return ClickLink{Secret: secret, BaseURL: baseURL}
}

func (l ClickLink) clock() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}

func (l ClickLink) mac(msg []byte) []byte {
	mac := hmac.New(sha256.New, l.Secret)
	mac.Write(msg)
	return mac.Sum(nil)
}

// Sign encodes c and exp as payload.sig. Fields are query-escaped so ids may contain '|'.
func (l ClickLink) Sign(c Click, exp time.Time) string {
	msg := strings.Join([]string{
		url.QueryEscape(c.SubjectID),
		url.QueryEscape(c.ProductID),
		url.QueryEscape(c.Provider),
		strconv.FormatInt(exp.Unix(), 10),
	}, "|")
	sig := base64.RawURLEncoding.EncodeToString(l.mac([]byte(msg)))
	payload := base64.RawURLEncoding.EncodeToString([]byte(msg))
	return payload + "." + sig
}

func (l ClickLink) Verify(token string) (Click, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return Click{}, ErrBadToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Click{}, ErrBadToken
	}

	expected := base64.RawURLEncoding.EncodeToString(l.mac(payload))
	if !hmac.Equal([]byte(expected), []byte(parts[1])) {
		return Click{}, ErrBadSig
	}

	fields := strings.Split(string(payload), "|")
	if len(fields) != 4 {
		return Click{}, ErrBadPayload
	}

	var c Click
	for i, dst := range []*string{&c.SubjectID, &c.ProductID, &c.Provider} {
		v, err := url.QueryUnescape(fields[i])
		if err != nil {
			return Click{}, ErrBadPayload
		}
		*dst = v
	}
	if c.SubjectID == "" || c.ProductID == "" {
		return Click{}, ErrBadPayload
	}

	expUnix, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Click{}, ErrBadPayload
	}
	if l.clock().After(time.Unix(expUnix, 0)) {
		return Click{}, ErrExpired
	}
	return c, nil
}

// URL returns the tracked redirect link for c, valid for ttl
func (l ClickLink) URL(c Click, ttl time.Duration) string {
	tok := l.Sign(c, l.clock().Add(ttl))
	u, err := url.Parse(l.BaseURL)
	if err != nil {
		u = &url.URL{}
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/r/" + tok
	return u.String()
}
