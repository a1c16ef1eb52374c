package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileTokenProvider keeps the bearer credential in a single file.
type FileTokenProvider struct {
	mu   sync.Mutex
	path string
}

func NewFileTokenProvider(path string) *FileTokenProvider {
	return &FileTokenProvider{path: path}
}

func (p *FileTokenProvider) GetToken() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (p *FileTokenProvider) SaveToken(token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	return os.WriteFile(p.path, []byte(token), 0o600)
}

func (p *FileTokenProvider) RemoveToken() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// MemoryTokenProvider is a process-local credential holder.
type MemoryTokenProvider struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryTokenProvider(token string) *MemoryTokenProvider {
	return &MemoryTokenProvider{token: token}
}

func (p *MemoryTokenProvider) GetToken() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token, nil
}

func (p *MemoryTokenProvider) SaveToken(token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
	return nil
}

func (p *MemoryTokenProvider) RemoveToken() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	return nil
}

// AuthorizationHeader formats the credential for the connection-time header.
func AuthorizationHeader(token string) string {
	if strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bearer " + token
}
