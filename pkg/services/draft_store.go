package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/examaid-app/examaid-engine/pkg/apperrors"
	"github.com/examaid-app/examaid-engine/pkg/models"
)

// draftTTL is how long an untouched draft survives before it is dropped.
const draftTTL = 24 * time.Hour

// DraftStore holds draft state between client requests. Drafts are
// disposable; losing one costs the user re-entry, never stored data.
type DraftStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Draft, error)
	Put(ctx context.Context, draft *models.Draft) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// memoryDraftStore keeps drafts in process memory. Used when Redis is
// not configured.
type memoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[uuid.UUID]*models.Draft
}

// NewMemoryDraftStore creates an in-memory draft store.
func NewMemoryDraftStore() DraftStore {
	return &memoryDraftStore{drafts: make(map[uuid.UUID]*models.Draft)}
}

func (s *memoryDraftStore) Get(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.drafts[id]
	if !ok {
		return nil, apperrors.ErrDraftMissing
	}
	if time.Since(draft.UpdatedAt) > draftTTL {
		return nil, apperrors.ErrDraftMissing
	}

	copied := *draft
	return &copied, nil
}

func (s *memoryDraftStore) Put(ctx context.Context, draft *models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *draft
	s.drafts[draft.ID] = &copied
	return nil
}

func (s *memoryDraftStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, id)
	return nil
}

// redisDraftStore keeps drafts in Redis so a reconnecting client can
// resume its capture on another engine instance.
type redisDraftStore struct {
	client *redis.Client
}

// NewRedisDraftStore creates a Redis-backed draft store.
func NewRedisDraftStore(client *redis.Client) DraftStore {
	return &redisDraftStore{client: client}
}

func draftKey(id uuid.UUID) string {
	return "examaid:draft:" + id.String()
}

func (s *redisDraftStore) Get(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	data, err := s.client.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrDraftMissing
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	var draft models.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &draft, nil
}

func (s *redisDraftStore) Put(ctx context.Context, draft *models.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	if err := s.client.Set(ctx, draftKey(draft.ID), data, draftTTL).Err(); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

func (s *redisDraftStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, draftKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// Ensure implementations satisfy DraftStore at compile time.
var (
	_ DraftStore = (*memoryDraftStore)(nil)
	_ DraftStore = (*redisDraftStore)(nil)
)
