package cache

import (
	"context"
	"errors"
	"time"
)

// AnswerStore holds a learner's in-progress answers between requests, so a
// reload or an auto-submit sees what was last saved.
type AnswerStore struct {
	cache CacheService
	ttl   time.Duration
}

func NewAnswerStore(cache CacheService, ttl time.Duration) *AnswerStore {
	return &AnswerStore{cache: cache, ttl: ttl}
}

func answerKey(formID, actorID, deviceID string) string {
	return "attempt-answers:" + formID + ":" + actorID + ":" + deviceID
}

// Save replaces the held answers.
func (s *AnswerStore) Save(ctx context.Context, formID, actorID, deviceID string, answers map[string]any) error {
	if answers == nil {
		answers = map[string]any{}
	}
	return s.cache.Set(ctx, answerKey(formID, actorID, deviceID), answers, s.ttl)
}

// Load returns the held answers, or an empty map when nothing is held.
func (s *AnswerStore) Load(ctx context.Context, formID, actorID, deviceID string) (map[string]any, error) {
	answers := map[string]any{}
	err := s.cache.Get(ctx, answerKey(formID, actorID, deviceID), &answers)
	if errors.Is(err, ErrCacheMiss) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	return answers, nil
}

func (s *AnswerStore) Clear(ctx context.Context, formID, actorID, deviceID string) error {
	return s.cache.Delete(ctx, answerKey(formID, actorID, deviceID))
}

// ClearForm drops every held answer set of a form.
func (s *AnswerStore) ClearForm(ctx context.Context, formID string) error {
	return s.cache.DeletePattern(ctx, "attempt-answers:"+formID+":*")
}
