package ticket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/exchange-desk/internal/access"
	"github.com/dvloznov/exchange-desk/internal/deskerr"
	"github.com/dvloznov/exchange-desk/internal/domain"
	"github.com/dvloznov/exchange-desk/internal/ledger"
	"github.com/dvloznov/exchange-desk/internal/store/inmemory"
)

// fakeResolver grants capabilities by actor id.
type fakeResolver struct {
	staff      map[string]bool
	exchangers map[string]bool
}

func (f fakeResolver) Resolve(a domain.Actor) access.Capabilities {
	return access.Capabilities{
		Staff:     f.staff[a.ID],
		Exchanger: f.staff[a.ID] || f.exchangers[a.ID],
	}
}

func (f fakeResolver) Route(domain.Method) access.Routing { return access.Routing{} }

var (
	requester = domain.Actor{ID: "req"}
	exchanger = domain.Actor{ID: "ex1"}
	other     = domain.Actor{ID: "ex2"}
	staff     = domain.Actor{ID: "boss"}
	stranger  = domain.Actor{ID: "nobody"}
)

func newTestStore() (*Store, *ledger.Ledger) {
	kv := inmemory.NewStore()
	l := ledger.New(kv)
	r := fakeResolver{
		staff:      map[string]bool{"boss": true},
		exchangers: map[string]bool{"ex1": true, "ex2": true},
	}
	return New(kv, r, l), l
}

func paypalIntake() domain.IntakeRecord {
	return domain.IntakeRecord{
		RequesterID:   "req",
		SendMethod:    domain.PayPal,
		SendDetail:    domain.PayPalBalance,
		ReceiveMethod: domain.Crypto,
		ReceiveDetail: "BTC",
		Amount:        decimal.NewFromInt(40),
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCreate(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	tk, err := s.Create(ctx, "k1", "exchange-req-0001", paypalIntake())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tk.Status != domain.StatusOpen || tk.Claimed {
		t.Errorf("new ticket = %+v, want open and unclaimed", tk)
	}

	got, ok, err := s.Get(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.RequesterID != "req" || got.SendLabel() != "PayPal (PayPal Balance)" {
		t.Errorf("stored ticket = %+v", got)
	}

	_, err = s.Create(ctx, "k1", "", paypalIntake())
	if !errors.Is(err, deskerr.ErrState) {
		t.Errorf("duplicate Create error = %v, want state error", err)
	}
}

func TestClaim(t *testing.T) {
	tests := []struct {
		name    string
		actor   domain.Actor
		key     string
		wantErr error
	}{
		{name: "exchanger", actor: exchanger, key: "k1"},
		{name: "staff implies exchanger", actor: staff, key: "k1"},
		{name: "requester is not an exchanger", actor: requester, key: "k1", wantErr: deskerr.ErrPermission},
		{name: "absent ticket", actor: exchanger, key: "missing", wantErr: deskerr.ErrState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore()
			ctx := context.Background()
			if _, err := s.Create(ctx, "k1", "", paypalIntake()); err != nil {
				t.Fatal(err)
			}

			tk, err := s.Claim(ctx, tt.key, tt.actor)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Claim error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Claim: %v", err)
			}
			if !tk.Claimed || tk.ClaimedBy != tt.actor.ID {
				t.Errorf("claimed ticket = %+v", tk)
			}
		})
	}
}

func TestClaimTwiceNamesClaimant(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	if _, err := s.Create(ctx, "k1", "", paypalIntake()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Claim(ctx, "k1", exchanger); err != nil {
		t.Fatal(err)
	}

	_, err := s.Claim(ctx, "k1", other)
	if !errors.Is(err, deskerr.ErrState) {
		t.Fatalf("second Claim error = %v, want state error", err)
	}
	if msg := deskerr.Message(err); msg != "this ticket has already been claimed by ex1" {
		t.Errorf("message = %q", msg)
	}
}

func TestConcurrentClaimHasOneWinner(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	if _, err := s.Create(ctx, "k1", "", paypalIntake()); err != nil {
		t.Fatal(err)
	}

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := exchanger
			if i%2 == 1 {
				actor = other
			}
			if _, err := s.Claim(ctx, "k1", actor); err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("successful claims = %d, want 1", wins.Load())
	}
}

func TestCloseCompleted(t *testing.T) {
	s, l := newTestStore()
	ctx := context.Background()
	if _, err := s.Create(ctx, "k1", "", paypalIntake()); err != nil {
		t.Fatal(err)
	}

	tk, err := s.Close(ctx, "k1", requester, dec("150"), "done")
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if tk.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", tk.Status)
	}
	// PayPal balance at 150 is charged 7%.
	if tk.Fee == nil || !tk.Fee.FeeAmount.Equal(decimal.RequireFromString("10.50")) {
		t.Errorf("fee = %+v, want 10.50", tk.Fee)
	}
	if tk.ClosedBy != "req" || tk.CloseReason != "done" || tk.ClosedAt == nil {
		t.Errorf("closure fields = %+v", tk)
	}

	total, _ := l.Total(ctx)
	if !total.Equal(decimal.NewFromInt(150)) {
		t.Errorf("ledger total = %s, want 150", total)
	}
	if _, ok, _ := s.Get(ctx, "k1"); ok {
		t.Error("closed ticket still active")
	}
}

func TestCloseCancelled(t *testing.T) {
	tests := []struct {
		name   string
		amount *decimal.Decimal
	}{
		{name: "no amount", amount: nil},
		{name: "zero", amount: dec("0")},
		{name: "negative", amount: dec("-3")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, l := newTestStore()
			ctx := context.Background()
			if _, err := s.Create(ctx, "k1", "", paypalIntake()); err != nil {
				t.Fatal(err)
			}

			tk, err := s.Close(ctx, "k1", staff, tt.amount, "")
			if err != nil {
				t.Fatalf("Close: %v", err)
			}
			if tk.Status != domain.StatusCancelled || tk.Fee != nil || tk.Amount != nil {
				t.Errorf("cancelled ticket = %+v", tk)
			}
			if tk.CloseReason != DefaultCloseReason {
				t.Errorf("reason = %q, want default", tk.CloseReason)
			}
			if total, _ := l.Total(ctx); !total.IsZero() {
				t.Errorf("ledger total = %s, want 0", total)
			}
		})
	}
}

func TestClosePermissionAndState(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	if _, err := s.Create(ctx, "k1", "", paypalIntake()); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Close(ctx, "k1", stranger, nil, ""); !errors.Is(err, deskerr.ErrPermission) {
		t.Errorf("stranger close error = %v, want permission error", err)
	}
	if _, err := s.Close(ctx, "k1", exchanger, nil, ""); !errors.Is(err, deskerr.ErrPermission) {
		t.Errorf("exchanger close error = %v, want permission error", err)
	}
	if _, ok, _ := s.Get(ctx, "k1"); !ok {
		t.Fatal("rejected close removed the ticket")
	}

	if _, err := s.Close(ctx, "k1", requester, nil, ""); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := s.Close(ctx, "k1", requester, nil, ""); !errors.Is(err, deskerr.ErrState) {
		t.Errorf("second close error = %v, want state error", err)
	}
}

func TestConcurrentCloseCountsOnce(t *testing.T) {
	s, l := newTestStore()
	ctx := context.Background()
	if _, err := s.Create(ctx, "k1", "", paypalIntake()); err != nil {
		t.Fatal(err)
	}

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Close(ctx, "k1", staff, dec("25"), ""); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	if successes.Load() != 1 {
		t.Errorf("successful closes = %d, want 1", successes.Load())
	}
	if total, _ := l.Total(ctx); !total.Equal(decimal.NewFromInt(25)) {
		t.Errorf("ledger total = %s, want 25", total)
	}
}

func TestList(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	for _, k := range []string{"b", "a", "c"} {
		if _, err := s.Create(ctx, k, "", paypalIntake()); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Close(ctx, "b", requester, nil, ""); err != nil {
		t.Fatal(err)
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Key != "a" || got[1].Key != "c" {
		t.Errorf("List() = %+v, want [a c]", got)
	}
}
