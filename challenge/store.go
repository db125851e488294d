// Package challenge issues and consumes single-use attestation challenges.
// A challenge is consumed on its first presentation regardless of the
// verification outcome; it is never reusable.
package challenge

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ValueLength is the number of random bytes in a challenge.
const ValueLength = 32

var (
	// ErrNotFound is returned when a challenge was never issued or has
	// already been consumed.
	ErrNotFound = errors.New("challenge not found or already consumed")

	// ErrExpired is returned when a challenge is presented past its TTL.
	ErrExpired = errors.New("challenge expired")
)

// Record is the metadata about a single challenge issuance.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Value     []byte    `json:"value"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store keeps pending challenges in memory. Consume removes the record on
// first access, which makes every challenge single-use by construction.
type Store struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*Record

	ttl time.Duration
	log *slog.Logger
	now func() time.Time
}

// NewStore creates a challenge store with the given TTL.
func NewStore(ttl time.Duration, log *slog.Logger) *Store {
	return &Store{
		byID: make(map[uuid.UUID]*Record),
		ttl:  ttl,
		log:  log,
		now:  time.Now,
	}
}

// Issue generates a fresh random challenge and records it as pending.
func (s *Store) Issue(ctx context.Context) (*Record, error) {
	value := make([]byte, ValueLength)
	if _, err := rand.Read(value); err != nil {
		return nil, fmt.Errorf("generating challenge: %w", err)
	}

	now := s.now()
	rec := &Record{
		ID:        uuid.Must(uuid.NewRandom()),
		Value:     value,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.byID[rec.ID] = rec
	s.mu.Unlock()

	s.log.Debug("Issued challenge",
		slog.String("challengeID", rec.ID.String()),
		slog.Time("expiresAt", rec.ExpiresAt))

	return rec, nil
}

// Consume removes and returns the pending challenge. The removal happens
// before any outcome is known, so a challenge presented with a failing
// attestation is just as spent as one that verified.
func (s *Store) Consume(ctx context.Context, id uuid.UUID) (*Record, error) {
	s.mu.Lock()
	rec, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	if s.now().After(rec.ExpiresAt) {
		return nil, ErrExpired
	}
	return rec, nil
}

// Prune drops expired pending challenges and returns how many were removed.
// Intended to be called periodically by the server loop.
func (s *Store) Prune() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.byID {
		if now.After(rec.ExpiresAt) {
			delete(s.byID, id)
			removed++
		}
	}
	return removed
}

// Pending returns the number of unconsumed challenges.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
