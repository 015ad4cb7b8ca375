package services

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// SecretProvider caches the JWT signing secret for the process lifetime.
// The secret is fetched lazily on first use; Invalidate forces one refetch,
// which the session service uses to absorb a secret rotation after a
// signature-verification failure.
type SecretProvider struct {
	mu     sync.Mutex
	secret []byte
	fetch  func() ([]byte, error)
}

// NewSecretProvider reads JWT_SECRET, or the file named by JWT_SECRET_FILE
// when the variable itself is unset (the deployed service mounts the secret
// as a file rather than an environment variable).
func NewSecretProvider() *SecretProvider {
	return &SecretProvider{fetch: fetchSecretFromEnv}
}

// NewStaticSecretProvider wraps a fixed secret, used in tests.
func NewStaticSecretProvider(secret []byte) *SecretProvider {
	return &SecretProvider{
		fetch: func() ([]byte, error) { return secret, nil },
	}
}

func (p *SecretProvider) Get() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.secret != nil {
		return p.secret, nil
	}
	secret, err := p.fetch()
	if err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("signing secret is empty")
	}
	p.secret = secret
	return p.secret, nil
}

func (p *SecretProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.secret = nil
}

func fetchSecretFromEnv() ([]byte, error) {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		return []byte(v), nil
	}
	if path := os.Getenv("JWT_SECRET_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read signing secret file: %w", err)
		}
		return []byte(strings.TrimSpace(string(data))), nil
	}
	return nil, fmt.Errorf("JWT_SECRET not configured")
}
