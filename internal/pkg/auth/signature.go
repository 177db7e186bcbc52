package auth

import (
	"crypto/hmac"
	"encoding/hex"
	"fmt"
	"strings"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
)

// SignatureVerifier checks the x-signature header sent with gateway webhooks.
// Header format: "ts=<timestamp>,v1=<hex hmac-sha256>".
type SignatureVerifier struct {
	secret []byte
}

// NewSignatureVerifier returns a verifier; an empty secret disables verification.
func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// Enabled reports whether a webhook secret is configured.
func (v *SignatureVerifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// Verify validates header against the notified data id and the x-request-id header.
func (v *SignatureVerifier) Verify(header, requestID, dataID string) error {
	if !v.Enabled() {
		return nil
	}

	ts, sig := parseSignatureHeader(header)
	if ts == "" || sig == "" {
		return domainErrors.ErrInvalidSignature
	}

	got, err := hex.DecodeString(sig)
	if err != nil {
		return domainErrors.ErrInvalidSignature
	}
	if !hmac.Equal(macSum(v.secret, SignatureManifest(dataID, requestID, ts)), got) {
		return domainErrors.ErrInvalidSignature
	}
	return nil
}

// Sign produces a header value for the manifest; used by tests and local tooling.
func (v *SignatureVerifier) Sign(requestID, dataID, ts string) string {
	return "ts=" + ts + ",v1=" + hex.EncodeToString(macSum(v.secret, SignatureManifest(dataID, requestID, ts)))
}

// SignatureManifest builds the signed template. Data ids are compared lowercase.
func SignatureManifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		fmt.Fprintf(&b, "id:%s;", strings.ToLower(dataID))
	}
	if requestID != "" {
		fmt.Fprintf(&b, "request-id:%s;", requestID)
	}
	fmt.Fprintf(&b, "ts:%s;", ts)
	return b.String()
}

func parseSignatureHeader(header string) (ts, sig string) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			sig = strings.TrimSpace(value)
		}
	}
	return ts, sig
}
