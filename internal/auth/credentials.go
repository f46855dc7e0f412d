package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrCredentialMismatch is returned by Compare when the plaintext does not match the digest.
var ErrCredentialMismatch = errors.New("credential mismatch")

// CredentialStore hashes and checks passwords with bcrypt.
type CredentialStore struct {
	cost int
}

// NewCredentialStore returns a store using bcrypt.DefaultCost.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{cost: bcrypt.DefaultCost}
}

// NewCredentialStoreWithCost is for tests that want bcrypt.MinCost.
func NewCredentialStoreWithCost(cost int) *CredentialStore {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CredentialStore{cost: cost}
}

// Hash returns a salted bcrypt digest of plaintext.
func (s *CredentialStore) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Compare reports ErrCredentialMismatch when plaintext does not match digest.
// A corrupt digest is reported as a mismatch as well.
func (s *CredentialStore) Compare(plaintext, digest string) error {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrCredentialMismatch
	}
	return fmt.Errorf("%w: %v", ErrCredentialMismatch, err)
}

// Verify is Compare as a boolean.
func (s *CredentialStore) Verify(plaintext, digest string) bool {
	return s.Compare(plaintext, digest) == nil
}
