package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a download token fails verification.
var ErrInvalidToken = errors.New("invalid or expired file token")

// Store resolves receipt attachments. Refs are opaque to the rest of the
// system; URLs are short-lived token-signed links served by the files handler.
type Store interface {
	Save(name string, r io.Reader) (ref string, err error)
	Open(ref string) (io.ReadCloser, error)
	// GetFileURL builds the download URL for a stored attachment. With
	// useToken the URL carries a signed, expiring token; without it the
	// caller is expected to be behind session auth already.
	GetFileURL(ownerID uuid.UUID, ref string, useToken bool) (string, error)
	VerifyToken(token, ref string) error
}

type localStore struct {
	root     string
	baseURL  string
	secret   []byte
	tokenTTL time.Duration
}

// NewLocalStore stores attachments under root and signs download tokens with secret.
func NewLocalStore(root, baseURL string, secret []byte) (Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create file root: %w", err)
	}
	return &localStore{
		root:     root,
		baseURL:  strings.TrimRight(baseURL, "/"),
		secret:   secret,
		tokenTTL: 15 * time.Minute,
	}, nil
}

func (s *localStore) Save(name string, r io.Reader) (string, error) {
	ext := filepath.Ext(name)
	ref := uuid.NewString() + ext

	f, err := os.Create(filepath.Join(s.root, ref))
	if err != nil {
		return "", fmt.Errorf("failed to create attachment file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}
	return ref, nil
}

func (s *localStore) Open(ref string) (io.ReadCloser, error) {
	// Refs are generated server-side, but never trust them as paths
	clean := filepath.Base(ref)
	return os.Open(filepath.Join(s.root, clean))
}

func (s *localStore) GetFileURL(ownerID uuid.UUID, ref string, useToken bool) (string, error) {
	if ref == "" {
		return "", nil
	}
	url := s.baseURL + "/api/files/" + ref
	if !useToken {
		return url, nil
	}

	claims := jwt.MapClaims{
		"ref": ref,
		"sub": ownerID.String(),
		"exp": time.Now().Add(s.tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign file token: %w", err)
	}
	return url + "?token=" + token, nil
}

func (s *localStore) VerifyToken(tokenString, ref string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ErrInvalidToken
	}
	if claimed, _ := claims["ref"].(string); claimed != ref {
		return ErrInvalidToken
	}
	return nil
}
