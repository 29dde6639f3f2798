package credentials

import (
	"context"
	"sync"

	"github.com/comdesk/sessiond/internal/common"
)

// MemoryRepository is an in-memory credential store. Writes are serialized by
// a mutex, which satisfies the per-username serialization contract. Intended
// for tests and single-process development setups.
type MemoryRepository struct {
	mu     sync.Mutex
	tokens map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: make(map[string]string)}
}

func (r *MemoryRepository) Save(ctx context.Context, username, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[username] = token
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, username string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[username]
	if !ok {
		return "", common.ErrorNotFound
	}
	return token, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, username)
	return nil
}
