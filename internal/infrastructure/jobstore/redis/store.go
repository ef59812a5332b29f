package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

const (
	keyPrefix  = "swarm:job:"
	defaultTTL = 24 * time.Hour
)

// commander is the subset of *goredis.Client used by the store.
type commander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
}

// JobStore keeps analysis job status with a TTL so finished jobs expire.
type JobStore struct {
	client commander
	ttl    time.Duration
}

func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, domain.WrapError(domain.ErrTemporary, "redis ping", err)
	}
	return client, nil
}

func NewJobStore(client commander, ttl time.Duration) *JobStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &JobStore{client: client, ttl: ttl}
}

func (s *JobStore) Put(ctx context.Context, job domain.AnalysisJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+job.ID, payload, s.ttl).Err(); err != nil {
		return domain.WrapError(domain.ErrTemporary, "redis set job", err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*domain.AnalysisJob, error) {
	raw, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.WrapError(domain.ErrNotFound, "get job", fmt.Errorf("job %s", id))
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "redis get job", err)
	}

	var job domain.AnalysisJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}
