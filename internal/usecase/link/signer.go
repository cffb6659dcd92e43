package link

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

var idEncoding = base64.RawURLEncoding.Strict()

// Signer binds a link id to a server secret. Tokens have the form
// base64url(id) "." hex(HMAC-SHA256(secret, id)).
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(id string) string {
	return idEncoding.EncodeToString([]byte(id)) + "." + s.mac(id)
}

// Verify returns the id carried by token if its signature matches.
func (s *Signer) Verify(token string) (string, error) {
	encodedID, signature, ok := strings.Cut(token, ".")
	if !ok || encodedID == "" || signature == "" {
		return "", ErrInvalidToken
	}

	raw, err := idEncoding.DecodeString(encodedID)
	if err != nil {
		return "", ErrInvalidToken
	}
	id := string(raw)

	if !hmac.Equal([]byte(signature), []byte(s.mac(id))) {
		return "", ErrInvalidToken
	}

	return id, nil
}

func (s *Signer) mac(id string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(id))
	return hex.EncodeToString(h.Sum(nil))
}
