package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultWebhookTokenExpiry bounds how long a signed bearer token for
// the run-summary webhook is considered valid before it is re-signed.
const defaultWebhookTokenExpiry = 5 * time.Minute

// WebhookAuth lazily signs and caches an ES256 bearer token for
// WebhookConfig, following the same issue/expiry/cache-until-expired
// shape as the App Store Connect token minting this pattern is
// grounded on.
type WebhookAuth struct {
	cfg *WebhookConfig

	tokenLock sync.Mutex
	token     *webhookToken
}

func NewWebhookAuth(cfg *WebhookConfig) *WebhookAuth {
	return &WebhookAuth{cfg: cfg}
}

type webhookToken struct {
	Issued   *jwt.NumericDate `json:"iat"`
	Expiry   *jwt.NumericDate `json:"exp"`
	Issuer   string           `json:"iss,omitempty"`
	Audience string           `json:"aud"`

	signed string
}

func (t *webhookToken) GetExpirationTime() (*jwt.NumericDate, error) { return t.Expiry, nil }
func (t *webhookToken) GetIssuedAt() (*jwt.NumericDate, error)       { return t.Issued, nil }
func (t *webhookToken) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (t *webhookToken) GetIssuer() (string, error)                   { return t.Issuer, nil }
func (t *webhookToken) GetSubject() (string, error)                  { return "extract-utils", nil }
func (t *webhookToken) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings{t.Audience}, nil
}

func (t *webhookToken) hasExpired() bool {
	return t == nil || t.Expiry.Before(time.Now())
}

// BearerToken returns a valid signed token, minting a new one if the
// cached token has expired or none exists yet.
func (auth *WebhookAuth) BearerToken() (string, error) {
	auth.tokenLock.Lock()
	defer auth.tokenLock.Unlock()

	if !auth.token.hasExpired() {
		return auth.token.signed, nil
	}

	key, err := auth.loadKey()
	if err != nil {
		return "", fmt.Errorf("load webhook signing key: %w", err)
	}

	token := &webhookToken{
		Issued:   jwt.NewNumericDate(time.Now()),
		Audience: "extract-utils-webhook",
		Issuer:   auth.cfg.Issuer,
	}
	token.Expiry = jwt.NewNumericDate(token.Issued.Add(defaultWebhookTokenExpiry))

	signer := jwt.NewWithClaims(jwt.SigningMethodES256, token, func(t *jwt.Token) {
		t.Header["kid"] = auth.cfg.KeyID
	})

	if token.signed, err = signer.SignedString(key); err != nil {
		return "", fmt.Errorf("sign webhook auth token: %w", err)
	}

	auth.token = token
	return auth.token.signed, nil
}

func (auth *WebhookAuth) loadKey() (*ecdsa.PrivateKey, error) {
	var (
		raw []byte
		err error
	)

	if envName, found := strings.CutPrefix(auth.cfg.KeyFile, "ENV:"); found {
		if raw, err = base64.StdEncoding.DecodeString(os.Getenv(envName)); err != nil {
			return nil, fmt.Errorf("decode webhook key from environment: %w", err)
		}
	} else {
		if raw, err = os.ReadFile(auth.cfg.KeyFile); err != nil {
			return nil, fmt.Errorf("read webhook key file: %w", err)
		}
	}

	key, err := x509.ParsePKCS8PrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parse webhook key: %w", err)
	} else if ecdsaKey, ok := key.(*ecdsa.PrivateKey); !ok || ecdsaKey.Curve != elliptic.P256() {
		return nil, fmt.Errorf("webhook key is not an ES256 private key")
	} else {
		return ecdsaKey, nil
	}
}
