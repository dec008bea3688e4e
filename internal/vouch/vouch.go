// Package vouch records ratings users leave for each other after an exchange.
package vouch

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/exchange-desk/internal/deskerr"
	"github.com/dvloznov/exchange-desk/internal/domain"
	"github.com/dvloznov/exchange-desk/internal/logger"
)

const (
	MinRating = 1
	MaxRating = 5

	// RecentCount is how many vouches a summary lists.
	RecentCount = 5

	// DefaultComment is stored when the author leaves none.
	DefaultComment = "No comment provided."

	maxCommentLen = 500
)

// Vouch is a single rating.
type Vouch struct {
	ID        string    `json:"id"`
	FromID    string    `json:"from_id"`
	TargetID  string    `json:"target_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary aggregates the vouches of one user.
type Summary struct {
	TargetID string          `json:"target_id"`
	Count    int64           `json:"count"`
	Average  decimal.Decimal `json:"average"`
	Recent   []Vouch         `json:"recent"`
}

// Repository persists vouches.
type Repository interface {
	Insert(ctx context.Context, v Vouch) error
	// Stats returns the number of vouches for target and the sum of their ratings.
	Stats(ctx context.Context, targetID string) (count, sum int64, err error)
	// Recent returns up to limit vouches for target, newest first.
	Recent(ctx context.Context, targetID string, limit int) ([]Vouch, error)
}

// Service validates and records vouches.
type Service struct {
	repo Repository

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewService returns a service over repo.
func NewService(repo Repository) *Service {
	return &Service{
		repo:    repo,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Vouch records a rating from author for targetID and returns the target's
// updated summary.
func (s *Service) Vouch(ctx context.Context, author domain.Actor, targetID string, rating int, comment string) (Summary, error) {
	if targetID == "" {
		return Summary{}, deskerr.Validation("choose a user to vouch for")
	}
	if author.ID == targetID {
		return Summary{}, deskerr.Validation("you cannot vouch for yourself")
	}
	if rating < MinRating || rating > MaxRating {
		return Summary{}, deskerr.Validation("rating must be between %d and %d", MinRating, MaxRating)
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		comment = DefaultComment
	}
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return Summary{}, deskerr.Validation("comment is limited to %d characters", maxCommentLen)
	}

	id, now, err := s.newID()
	if err != nil {
		return Summary{}, err
	}
	v := Vouch{
		ID:        id,
		FromID:    author.ID,
		TargetID:  targetID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: now,
	}
	if err := s.repo.Insert(ctx, v); err != nil {
		return Summary{}, deskerr.Infrastructure(err, "failed to save vouch")
	}

	log := logger.ForActor(logger.FromContext(ctx), author)
	log.Info().
		Str("target_id", targetID).
		Int("rating", rating).
		Msg("Vouch recorded")

	return s.Summary(ctx, targetID)
}

// Summary returns the count, average and most recent vouches for targetID.
func (s *Service) Summary(ctx context.Context, targetID string) (Summary, error) {
	count, sum, err := s.repo.Stats(ctx, targetID)
	if err != nil {
		return Summary{}, deskerr.Infrastructure(err, "failed to load vouches")
	}

	out := Summary{TargetID: targetID, Count: count, Average: decimal.Zero, Recent: []Vouch{}}
	if count == 0 {
		return out, nil
	}
	out.Average = decimal.NewFromInt(sum).Div(decimal.NewFromInt(count)).Round(1)

	recent, err := s.repo.Recent(ctx, targetID, RecentCount)
	if err != nil {
		return Summary{}, deskerr.Infrastructure(err, "failed to load vouches")
	}
	out.Recent = recent
	return out, nil
}

func (s *Service) newID() (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate vouch id: %w", err)
	}
	return id.String(), now, nil
}
