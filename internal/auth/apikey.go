package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/saltyorg/transferlog/internal/config"
)

const (
	// APIKeyLength is the length of generated API keys in bytes (will be hex encoded)
	APIKeyLength = 32
	// BcryptCost is the bcrypt cost factor for stored key hashes
	BcryptCost = bcrypt.DefaultCost
)

// SettingsStore reads and writes settings
type SettingsStore interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// APIKeyService handles the API key protecting the HTTP API.
// Only a bcrypt hash of the key is stored.
type APIKeyService struct {
	store SettingsStore

	mu           sync.Mutex
	verified     string // last key that matched verifiedHash
	verifiedHash string
}

// NewAPIKeyService creates a new API key service
func NewAPIKeyService(store SettingsStore) *APIKeyService {
	return &APIKeyService{store: store}
}

// GenerateAPIKey creates a new cryptographically secure API key
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, APIKeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// HashKey hashes a key using bcrypt
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash api key: %w", err)
	}
	return string(hash), nil
}

// CheckKey verifies a key against a hash
func CheckKey(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// Enabled reports whether an API key has been configured
func (s *APIKeyService) Enabled() (bool, error) {
	hash, err := s.store.GetSetting(config.KeyAPIKeyHash)
	if err != nil {
		return false, err
	}
	return hash != "", nil
}

// Regenerate creates a new key, stores its hash and returns the plaintext key
func (s *APIKeyService) Regenerate() (string, error) {
	key, err := GenerateAPIKey()
	if err != nil {
		return "", err
	}
	hash, err := HashKey(key)
	if err != nil {
		return "", err
	}
	if err := s.store.SetSetting(config.KeyAPIKeyHash, hash); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.verified = ""
	s.verifiedHash = ""
	s.mu.Unlock()

	return key, nil
}

// Validate checks a presented key against the stored hash
func (s *APIKeyService) Validate(key string) (bool, error) {
	if key == "" {
		return false, nil
	}

	hash, err := s.store.GetSetting(config.KeyAPIKeyHash)
	if err != nil {
		return false, fmt.Errorf("failed to load api key hash: %w", err)
	}
	if hash == "" {
		return false, nil
	}

	s.mu.Lock()
	cached := s.verified != "" && s.verifiedHash == hash &&
		subtle.ConstantTimeCompare([]byte(s.verified), []byte(key)) == 1
	s.mu.Unlock()
	if cached {
		return true, nil
	}

	if !CheckKey(key, hash) {
		return false, nil
	}

	s.mu.Lock()
	s.verified = key
	s.verifiedHash = hash
	s.mu.Unlock()
	return true, nil
}
