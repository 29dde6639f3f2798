package users

import (
	"context"
	"sync"

	"github.com/comdesk/sessiond/internal/common"
	"github.com/comdesk/sessiond/internal/server/models"
)

// MemoryRepository is an in-memory user store for tests and development.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*models.User)}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return nil, common.ErrUserExists
	}
	copied := *user
	r.users[user.Username] = &copied
	return user, nil
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *user
	return &copied, nil
}
