package service

import (
	"context"
	"time"

	"intern-portal/backend/internal/repository"
	"intern-portal/backend/pkg/cache"
)

// DirectoryService resolves display names through a TTL cache
type DirectoryService struct {
	users repository.UserRepository
	names *cache.Cache[uint, string]
}

// NewDirectoryService creates the directory. The cache purge loop stops with ctx.
func NewDirectoryService(ctx context.Context, users repository.UserRepository, ttl time.Duration, maxItems int) *DirectoryService {
	return &DirectoryService{
		users: users,
		names: cache.New[uint, string](ctx, cache.Options{
			TTL:             ttl,
			CleanupInterval: ttl,
			MaxItems:        maxItems,
		}),
	}
}

// DisplayName implements chat.UserDirectory
func (s *DirectoryService) DisplayName(ctx context.Context, userID uint) (string, error) {
	if name, ok := s.names.Get(userID); ok {
		return name, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	s.names.Set(userID, user.Name)
	return user.Name, nil
}
