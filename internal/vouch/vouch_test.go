package vouch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/exchange-desk/internal/deskerr"
	"github.com/dvloznov/exchange-desk/internal/domain"
)

func TestVouch_Validation(t *testing.T) {
	s := NewService(NewMemoryRepository())
	alice := domain.Actor{ID: "alice"}

	tests := []struct {
		name    string
		target  string
		rating  int
		comment string
	}{
		{"self vouch", "alice", 5, ""},
		{"no target", "", 5, ""},
		{"rating too low", "bob", 0, ""},
		{"rating too high", "bob", 6, ""},
		{"comment too long", "bob", 4, strings.Repeat("x", maxCommentLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Vouch(context.Background(), alice, tt.target, tt.rating, tt.comment)
			if !errors.Is(err, deskerr.ErrValidation) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}
}

func TestVouch_Summary(t *testing.T) {
	s := NewService(NewMemoryRepository())
	ctx := context.Background()

	ratings := []int{5, 4, 4, 3, 5, 5, 2}
	var last Summary
	for i, r := range ratings {
		var err error
		last, err = s.Vouch(ctx, domain.Actor{ID: fmt.Sprintf("u%d", i)}, "bob", r, fmt.Sprintf("c%d", i))
		if err != nil {
			t.Fatalf("Vouch %d: %v", i, err)
		}
	}

	if last.Count != 7 {
		t.Errorf("count = %d, want 7", last.Count)
	}
	// 28 / 7
	if !last.Average.Equal(decimal.NewFromInt(4)) {
		t.Errorf("average = %s, want 4", last.Average)
	}
	if len(last.Recent) != RecentCount {
		t.Fatalf("recent = %d, want %d", len(last.Recent), RecentCount)
	}
	if last.Recent[0].Comment != "c6" || last.Recent[4].Comment != "c2" {
		t.Errorf("recent not newest first: %+v", last.Recent)
	}
}

func TestVouch_DefaultCommentAndRounding(t *testing.T) {
	s := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := s.Vouch(ctx, domain.Actor{ID: "a"}, "bob", 5, "  "); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Vouch(ctx, domain.Actor{ID: "b"}, "bob", 4, "ok"); err != nil {
		t.Fatal(err)
	}
	sum, err := s.Vouch(ctx, domain.Actor{ID: "c"}, "bob", 4, "fine")
	if err != nil {
		t.Fatal(err)
	}

	// 13 / 3 = 4.333...
	if sum.Average.String() != "4.3" {
		t.Errorf("average = %s, want 4.3", sum.Average)
	}
	if got := sum.Recent[2].Comment; got != DefaultComment {
		t.Errorf("comment = %q, want default", got)
	}
}

func TestSummary_NoVouches(t *testing.T) {
	s := NewService(NewMemoryRepository())

	sum, err := s.Summary(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Count != 0 || !sum.Average.IsZero() || len(sum.Recent) != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

type failingRepo struct{ MemoryRepository }

func (f *failingRepo) Insert(ctx context.Context, v Vouch) error {
	return errors.New("connection refused")
}

func TestVouch_RepositoryFailure(t *testing.T) {
	s := NewService(&failingRepo{})

	_, err := s.Vouch(context.Background(), domain.Actor{ID: "a"}, "b", 5, "")
	if !errors.Is(err, deskerr.ErrInfrastructure) {
		t.Errorf("error = %v, want infrastructure error", err)
	}
}
