package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func signedToken(s *HMACStrategy, payload string) string {
	sig := base64.RawURLEncoding.EncodeToString(macSum(s.secret, payload))
	return base64.RawURLEncoding.EncodeToString([]byte(payload + "." + sig))
}

func TestNewHMACStrategy_DefaultTTL(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{})
	if strategy == nil {
		t.Fatal("expected strategy instance")
	}
	if string(strategy.secret) != "secret" {
		t.Fatalf("unexpected secret: %q", string(strategy.secret))
	}
	if strategy.ttl != 24*time.Hour {
		t.Fatalf("unexpected ttl: %s", strategy.ttl)
	}
}

func TestNewHMACStrategy_CustomTTL(t *testing.T) {
	ttl := 2 * time.Hour
	strategy := NewHMACStrategy("secret", Options{TTL: ttl})
	if strategy.ttl != ttl {
		t.Fatalf("unexpected ttl: %s", strategy.ttl)
	}
}

func TestHMACStrategy_IssueAndParse(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{TTL: time.Minute})
	token, err := strategy.IssueToken(42)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if token == "" || strings.ContainsAny(token, "+/=") {
		t.Fatalf("expected url safe token, got %q", token)
	}
	userID, err := strategy.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if userID != 42 {
		t.Fatalf("unexpected user id: %d", userID)
	}
}

func TestHMACStrategy_IssueRejectsInvalidUser(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{})
	if _, err := strategy.IssueToken(0); err == nil {
		t.Fatal("expected error for zero user id")
	}
}

func TestHMACStrategy_OtherSecretRejected(t *testing.T) {
	token, _ := NewHMACStrategy("secret", Options{}).IssueToken(5)
	if _, err := NewHMACStrategy("other", Options{}).ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHMACStrategy_ParseInvalid(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{})
	future := time.Now().Add(time.Minute).Unix()
	cases := map[string]string{
		"not base64":      "not base64!",
		"two parts":       base64.RawURLEncoding.EncodeToString([]byte("only.two")),
		"bad signature":   base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("7.%d.tampered", future))),
		"non numeric id":  signedToken(strategy, fmt.Sprintf("abc.%d", future)),
		"negative id":     signedToken(strategy, fmt.Sprintf("-3.%d", future)),
		"bad expiry":      signedToken(strategy, "10.not-a-number"),
		"expired":         signedToken(strategy, fmt.Sprintf("10.%d", time.Now().Add(-time.Minute).Unix())),
		"sig not base64":  base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("7.%d.***", future))),
		"empty":           "",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := strategy.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestHMACStrategy_ExpiresWithClock(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{TTL: time.Minute})
	now := time.Now()
	strategy.now = func() time.Time { return now }
	token, err := strategy.IssueToken(9)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	strategy.now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := strategy.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestHMACStrategy_Name(t *testing.T) {
	strategy := NewHMACStrategy("secret", Options{})
	if strategy.Name() != "hmac" {
		t.Fatalf("unexpected name: %s", strategy.Name())
	}
}
