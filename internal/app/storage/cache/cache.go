// Package cache decorates a storage backend with a Redis read-through cache
// for frames. Redis is best effort: when it fails, reads and writes go to the
// backend and the failure is logged.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/R3E-Network/framestore/internal/app/domain/frame"
	"github.com/R3E-Network/framestore/internal/app/storage"
	"github.com/R3E-Network/framestore/pkg/logger"
)

const keyPrefix = "framestore:frame:"

// Store caches GetFrame results and evicts them on every frame write. All
// other operations pass through to the wrapped store.
type Store struct {
	storage.Store

	rdb redis.Cmdable
	ttl time.Duration
	log *logger.Logger
}

var _ storage.Store = (*Store)(nil)
var _ storage.Pinger = (*Store)(nil)

// New wraps next. A non-positive ttl defaults to five minutes.
func New(next storage.Store, rdb redis.Cmdable, ttl time.Duration, log *logger.Logger) *Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = logger.NewDefault("frame-cache")
	}
	return &Store{Store: next, rdb: rdb, ttl: ttl, log: log}
}

// NewClient builds a Redis client from connection settings.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

func frameKey(id string) string { return keyPrefix + id }

// Ping checks Redis and, when it supports it, the wrapped store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	if p, ok := s.Store.(storage.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) GetFrame(ctx context.Context, id string) (frame.Frame, error) {
	raw, err := s.rdb.Get(ctx, frameKey(id)).Bytes()
	switch {
	case err == nil:
		var f frame.Frame
		if jerr := json.Unmarshal(raw, &f); jerr == nil {
			return f, nil
		}
		s.log.WithField("frame_id", id).Warn("discarding undecodable cached frame")
		s.evict(ctx, id)
	case !errors.Is(err, redis.Nil):
		s.log.WithError(err).WithField("frame_id", id).Warn("frame cache read failed")
	}

	f, err := s.Store.GetFrame(ctx, id)
	if err != nil {
		return f, err
	}
	s.put(ctx, f)
	return f, nil
}

func (s *Store) UpdateFrame(ctx context.Context, f frame.Frame) (frame.Frame, error) {
	defer s.evict(ctx, f.ID)
	return s.Store.UpdateFrame(ctx, f)
}

func (s *Store) DeleteFrame(ctx context.Context, id string) error {
	defer s.evict(ctx, id)
	return s.Store.DeleteFrame(ctx, id)
}

func (s *Store) CreateVersion(ctx context.Context, v frame.Version) (frame.Version, error) {
	defer s.evict(ctx, v.FrameID)
	return s.Store.CreateVersion(ctx, v)
}

func (s *Store) SetCurrentVersion(ctx context.Context, frameID, versionID string) (frame.Version, error) {
	defer s.evict(ctx, frameID)
	return s.Store.SetCurrentVersion(ctx, frameID, versionID)
}

func (s *Store) AddLike(ctx context.Context, frameID, userID string) (int, error) {
	defer s.evict(ctx, frameID)
	return s.Store.AddLike(ctx, frameID, userID)
}

func (s *Store) RemoveLike(ctx context.Context, frameID, userID string) (int, error) {
	defer s.evict(ctx, frameID)
	return s.Store.RemoveLike(ctx, frameID, userID)
}

func (s *Store) put(ctx context.Context, f frame.Frame) {
	raw, err := json.Marshal(f)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, frameKey(f.ID), raw, s.ttl).Err(); err != nil {
		s.log.WithError(err).WithField("frame_id", f.ID).Warn("frame cache write failed")
	}
}

func (s *Store) evict(ctx context.Context, id string) {
	if err := s.rdb.Del(ctx, frameKey(id)).Err(); err != nil {
		s.log.WithError(err).WithField("frame_id", id).Warn("frame cache evict failed")
	}
}
