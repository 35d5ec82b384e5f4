package credential

import "sync"

// MemoryStore keeps the credential in process memory. It backs one-off CLI
// runs given a raw access token, and tests.
type MemoryStore struct {
	mu   sync.Mutex
	cred *Credential
}

// NewMemoryStore returns a store holding cred, which may be nil.
func NewMemoryStore(cred *Credential) *MemoryStore {
	s := &MemoryStore{}
	if cred != nil {
		c := *cred
		s.cred = &c
	}
	return s
}

func (s *MemoryStore) Load() (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return nil, nil
	}
	c := *s.cred
	return &c, nil
}

func (s *MemoryStore) Save(cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = &cred
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	return nil
}
