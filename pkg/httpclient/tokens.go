package httpclient

import "sync"

type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// TokenStore holds the session tokens the client attaches to requests.
type TokenStore interface {
	Get() (Tokens, bool)
	Save(tokens Tokens)
	Clear()
}

type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens Tokens
	ok     bool
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Get() (Tokens, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens, s.ok
}

func (s *MemoryTokenStore) Save(tokens Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
	s.ok = tokens.AccessToken != ""
}

func (s *MemoryTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{}
	s.ok = false
}
