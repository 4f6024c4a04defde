package venueb

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strconv"
	"time"
)

// Signer produces the three KALSHI-ACCESS-* headers spec.md §6 requires
// on every REST request and on the websocket upgrade request. Grounded
// on the teacher's wallet-signing package idiom (a small struct wrapping
// a private key with a single Sign-like method) even though the
// algorithm itself (RSA-PSS-SHA256 over a request string, rather than
// ECDSA over a typed EIP-712 payload) is entirely different.
type Signer struct {
	apiKey string
	priv   *rsa.PrivateKey
}

// NewSigner parses a PEM-encoded PKCS#1 or PKCS#8 RSA private key.
func NewSigner(apiKey string, pemBytes []byte) (*Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("decode PEM: no block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return &Signer{apiKey: apiKey, priv: key}, nil
	}

	keyAny, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := keyAny.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return &Signer{apiKey: apiKey, priv: key}, nil
}

// Headers returns the KALSHI-ACCESS-KEY/TIMESTAMP/SIGNATURE header set
// for one request, signing timestamp‖method‖path‖body with RSA-PSS-
// SHA256, MGF1-SHA256, max salt length, base64-encoded.
func (s *Signer) Headers(method, path, body string) (map[string]string, error) {
	tsMS := strconv.FormatInt(time.Now().UnixMilli(), 10)
	msg := tsMS + method + path + body

	digest := sha256.Sum256([]byte(msg))
	sig, err := rsa.SignPSS(rand.Reader, s.priv, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	return map[string]string{
		"KALSHI-ACCESS-KEY":       s.apiKey,
		"KALSHI-ACCESS-TIMESTAMP": tsMS,
		"KALSHI-ACCESS-SIGNATURE": base64.StdEncoding.EncodeToString(sig),
	}, nil
}

// WebsocketHeaders signs the websocket upgrade request, using
// "GET" + wsPath as the signed path per spec.md §6.
func (s *Signer) WebsocketHeaders(wsPath string) (map[string]string, error) {
	return s.Headers("GET", wsPath, "")
}
