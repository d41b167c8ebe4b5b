package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"clipforge/internal/timeline"
)

const transcriptKeyPrefix = "clipforge:transcript:"

// TranscriptCache keeps recent transcripts in memory, optionally backed by
// a shared redis tier. Redis failures degrade to memory-only lookups.
type TranscriptCache struct {
	mem    *lru.Cache[string, timeline.Transcript]
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

type TranscriptCacheConfig struct {
	Capacity      int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

func NewTranscriptCache(cfg TranscriptCacheConfig, logger zerolog.Logger) (*TranscriptCache, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 128
	}
	mem, err := lru.New[string, timeline.Transcript](cfg.Capacity)
	if err != nil {
		return nil, err
	}

	c := &TranscriptCache{
		mem:    mem,
		ttl:    cfg.RedisTTL,
		logger: logger.With().Str("component", "transcript-cache").Logger(),
	}
	if cfg.RedisAddr == "" {
		return c, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	c.rdb = rdb
	return c, nil
}

func (c *TranscriptCache) Get(ctx context.Context, fileID string) (*timeline.Transcript, bool) {
	if t, ok := c.mem.Get(fileID); ok {
		return &t, true
	}
	if c.rdb == nil {
		return nil, false
	}

	data, err := c.rdb.Get(ctx, transcriptKeyPrefix+fileID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("file_id", fileID).Msg("redis get failed")
		}
		return nil, false
	}

	var t timeline.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		c.logger.Warn().Err(err).Str("file_id", fileID).Msg("discarding malformed cached transcript")
		return nil, false
	}
	c.mem.Add(fileID, t)
	return &t, true
}

func (c *TranscriptCache) Put(ctx context.Context, t *timeline.Transcript) {
	if t == nil || t.FileID == "" {
		return
	}
	c.mem.Add(t.FileID, *t)
	if c.rdb == nil {
		return
	}

	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, transcriptKeyPrefix+t.FileID, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("file_id", t.FileID).Msg("redis set failed")
	}
}

func (c *TranscriptCache) Delete(ctx context.Context, fileID string) {
	c.mem.Remove(fileID)
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, transcriptKeyPrefix+fileID).Err(); err != nil {
			c.logger.Warn().Err(err).Str("file_id", fileID).Msg("redis del failed")
		}
	}
}

func (c *TranscriptCache) Len() int {
	return c.mem.Len()
}

func (c *TranscriptCache) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}
