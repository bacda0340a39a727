package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-admin-backend/config"
	"github.com/rpupo63/portfolio-admin-backend/models"
)

const (
	keyPrefix = "portfolio:projects:"
	listKey   = keyPrefix + "all"
)

// Source is where cache misses are loaded from. Entries are filled from the
// primary: a lagging replica read right after an invalidation would put
// the old rows back for a whole TTL.
type Source interface {
	FindAll(ctx context.Context) ([]models.Project, error)
	FindAllPrimary(ctx context.Context) ([]models.Project, error)
	FindByID(ctx context.Context, id int64) (*models.Project, error)
	FindByIDPrimary(ctx context.Context, id int64) (*models.Project, error)
}

// ProjectStore is a read-through cache for the public project pages. A nil
// redis client disables caching and reads go to the replica. Redis failures
// fall through to the source.
type ProjectStore struct {
	source Source
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger zerolog.Logger
}

func NewProjectStore(source Source, rdb redis.UniversalClient, ttl time.Duration) *ProjectStore {
	return &ProjectStore{
		source: source,
		rdb:    rdb,
		ttl:    ttl,
		logger: log.With().Str("component", "projectCache").Logger(),
	}
}

// NewRedisClient returns nil when REDIS_ADDR is not configured.
func NewRedisClient(cfg map[string]string) redis.UniversalClient {
	addr := config.GetString(cfg, "REDIS_ADDR", "")
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.GetString(cfg, "REDIS_PASSWORD", ""),
		DB:       config.GetInt(cfg, "REDIS_DB", 0),
	})
}

func itemKey(id int64) string {
	return fmt.Sprintf("%sid:%d", keyPrefix, id)
}

func (s *ProjectStore) FindAll(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if s.get(ctx, listKey, &projects) {
		return projects, nil
	}

	load := s.source.FindAllPrimary
	if s.rdb == nil {
		load = s.source.FindAll
	}
	projects, err := load(ctx)
	if err != nil {
		return nil, err
	}
	s.set(ctx, listKey, projects)
	return projects, nil
}

func (s *ProjectStore) FindByID(ctx context.Context, id int64) (*models.Project, error) {
	var project models.Project
	if s.get(ctx, itemKey(id), &project) {
		return &project, nil
	}

	load := s.source.FindByIDPrimary
	if s.rdb == nil {
		load = s.source.FindByID
	}
	found, err := load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.set(ctx, itemKey(id), found)
	return found, nil
}

// Invalidate drops every cached project entry.
func (s *ProjectStore) Invalidate(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}
	var keys []string
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete cache keys: %w", err)
	}
	return nil
}

// ProjectsChanged is called after every successful admin write.
func (s *ProjectStore) ProjectsChanged(ctx context.Context) {
	if err := s.Invalidate(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to invalidate project cache")
	}
}

func (s *ProjectStore) get(ctx context.Context, key string, dest any) bool {
	if s.rdb == nil {
		return false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding corrupt cache entry")
		return false
	}
	return true
}

func (s *ProjectStore) set(ctx context.Context, key string, value any) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
