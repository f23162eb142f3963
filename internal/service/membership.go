package service

import (
	"context"
	"fmt"
	"time"

	"intern-portal/backend/internal/chat"
	"intern-portal/backend/internal/repository"
	"intern-portal/backend/pkg/logger"
	"intern-portal/backend/pkg/redis"
	"intern-portal/backend/pkg/resilience"
)

// MembershipConfig tunes the membership oracle
type MembershipConfig struct {
	CacheTTL         time.Duration
	QueryTimeout     time.Duration
	BreakerThreshold uint
	BreakerTimeout   time.Duration
}

// MembershipService answers chat.MembershipOracle queries from the project
// membership table. By default every call reads the table. A positive CacheTTL
// together with a redis client caches positive answers, so a removed member
// may keep publishing for up to CacheTTL. Negative answers are never cached.
type MembershipService struct {
	projects repository.ProjectRepository
	cache    *redis.Client
	breaker  *resilience.CircuitBreaker
	cfg      MembershipConfig
	log      *logger.Logger
}

// NewMembershipService creates the oracle. cache may be nil.
func NewMembershipService(projects repository.ProjectRepository, cache *redis.Client, cfg MembershipConfig, log *logger.Logger) *MembershipService {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 2 * time.Second
	}

	breakerCfg := resilience.DefaultCircuitBreakerConfig("membership")
	if cfg.BreakerThreshold > 0 {
		breakerCfg.FailureThreshold = cfg.BreakerThreshold
	}
	if cfg.BreakerTimeout > 0 {
		breakerCfg.RetryTimeout = cfg.BreakerTimeout
	}

	return &MembershipService{
		projects: projects,
		cache:    cache,
		breaker:  resilience.NewCircuitBreaker(breakerCfg, log),
		cfg:      cfg,
		log:      log,
	}
}

func membershipKey(userID, projectID uint) string {
	return fmt.Sprintf("membership:%d:%d", projectID, userID)
}

// IsMember implements chat.MembershipOracle. Any failure to reach the
// membership data is reported as chat.ErrOracleUnavailable.
func (s *MembershipService) IsMember(ctx context.Context, userID, projectID uint) (bool, error) {
	key := membershipKey(userID, projectID)

	if s.caching() {
		if _, found, err := s.cache.Get(ctx, key); err != nil {
			s.log.Warn("Membership cache read failed", "key", key, "error", err.Error())
		} else if found {
			return true, nil
		}
	}

	var member bool
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		queryCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()

		var err error
		member, err = s.projects.IsMember(queryCtx, userID, projectID)
		return err
	})
	if err != nil {
		return false, chat.ErrOracleUnavailable.Wrap(err)
	}

	if member && s.caching() {
		if err := s.cache.Set(ctx, key, "1", s.cfg.CacheTTL); err != nil {
			s.log.Warn("Membership cache write failed", "key", key, "error", err.Error())
		}
	}

	return member, nil
}

func (s *MembershipService) caching() bool {
	return s.cache != nil && s.cfg.CacheTTL > 0
}

// BreakerState exposes the circuit state for diagnostics
func (s *MembershipService) BreakerState() resilience.CircuitBreakerState {
	return s.breaker.GetState()
}

// BreakerMetrics returns the breaker's counters
func (s *MembershipService) BreakerMetrics() map[string]interface{} {
	return s.breaker.GetMetrics()
}
