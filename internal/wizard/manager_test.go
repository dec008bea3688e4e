package wizard

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/exchange-desk/internal/deskerr"
	"github.com/dvloznov/exchange-desk/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager() (*Manager, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(Options{
		Timeout:        5 * time.Minute,
		ConfirmTimeout: 2 * time.Minute,
		Now:            clock.Now,
	})
	return m, clock
}

var alice = domain.Actor{ID: "u1", Name: "alice"}

func mustStep(t *testing.T, s Session, err error, want Step) Session {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Step != want {
		t.Fatalf("step = %s, want %s", s.Step, want)
	}
	return s
}

func TestFullFlowWithCompoundMethods(t *testing.T) {
	m, _ := newTestManager()
	m.Start(alice)

	s, err := m.ChooseSendMethod("u1", domain.Crypto)
	mustStep(t, s, err, StepSendDetail)
	if got := len(s.Options()); got != 5 {
		t.Errorf("crypto detail options = %d, want 5", got)
	}

	s, err = m.ChooseSendDetail("u1", "LTC")
	mustStep(t, s, err, StepReceiveMethod)

	s, err = m.ChooseReceiveMethod("u1", domain.PayPal)
	mustStep(t, s, err, StepReceiveDetail)

	s, err = m.ChooseReceiveDetail("u1", domain.PayPalBalance)
	mustStep(t, s, err, StepAmount)

	s, err = m.SubmitAmount("u1", "$100")
	mustStep(t, s, err, StepConfirm)
	if s.Fee == nil {
		t.Fatal("expected fee breakdown after amount")
	}
	if !s.Fee.Percent.IsZero() {
		t.Errorf("crypto to PayPal percent = %s, want 0", s.Fee.Percent)
	}

	rec, err := m.Confirm("u1")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if rec.RequesterID != "u1" || rec.SendDetail != "LTC" || rec.ReceiveDetail != domain.PayPalBalance {
		t.Errorf("unexpected intake record: %+v", rec)
	}
	if !rec.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("amount = %s, want 100", rec.Amount)
	}

	if _, ok := m.Get("u1"); ok {
		t.Error("session should be consumed by Confirm")
	}
	if _, err := m.Confirm("u1"); !errors.Is(err, deskerr.ErrState) {
		t.Errorf("second Confirm error = %v, want state error", err)
	}
}

func TestReceiveOptionsExcludeSendMethod(t *testing.T) {
	m, _ := newTestManager()
	m.Start(alice)

	s, err := m.ChooseSendMethod("u1", domain.Revolut)
	mustStep(t, s, err, StepReceiveMethod)

	opts := s.Options()
	if len(opts) != len(domain.Catalog)-1 {
		t.Fatalf("receive options = %d, want %d", len(opts), len(domain.Catalog)-1)
	}
	for _, o := range opts {
		if o == string(domain.Revolut) {
			t.Fatal("send method offered as receive option")
		}
	}

	_, err = m.ChooseReceiveMethod("u1", domain.Revolut)
	if !errors.Is(err, deskerr.ErrValidation) {
		t.Errorf("same-method receive error = %v, want validation error", err)
	}
	if s, _ := m.Get("u1"); s.Step != StepReceiveMethod {
		t.Errorf("step after rejected receive = %s, want %s", s.Step, StepReceiveMethod)
	}
}

func TestRejectsInvalidDetailsAndMethods(t *testing.T) {
	m, _ := newTestManager()
	m.Start(alice)

	if _, err := m.ChooseSendMethod("u1", domain.Method("Gold")); !errors.Is(err, deskerr.ErrValidation) {
		t.Errorf("unknown method error = %v, want validation error", err)
	}

	if _, err := m.ChooseSendMethod("u1", domain.PayPal); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ChooseSendDetail("u1", "LTC"); !errors.Is(err, deskerr.ErrValidation) {
		t.Errorf("foreign detail error = %v, want validation error", err)
	}
	s, _ := m.Get("u1")
	if s.Step != StepSendDetail || s.SendDetail != "" {
		t.Errorf("session changed after rejected detail: %+v", s)
	}
}

func TestInvalidAmountLeavesStepUnchanged(t *testing.T) {
	inputs := []string{"", "abc", "0", "-5", "0.001", "€", "9e99999999", "1e30", "99999999999999999"}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			m, _ := newTestManager()
			m.Start(alice)
			if _, err := m.ChooseSendMethod("u1", domain.Zelle); err != nil {
				t.Fatal(err)
			}
			if _, err := m.ChooseReceiveMethod("u1", domain.Wise); err != nil {
				t.Fatal(err)
			}

			_, err := m.SubmitAmount("u1", raw)
			if !errors.Is(err, deskerr.ErrValidation) {
				t.Fatalf("SubmitAmount(%q) error = %v, want validation error", raw, err)
			}
			s, ok := m.Get("u1")
			if !ok {
				t.Fatal("session vanished after invalid amount")
			}
			if s.Step != StepAmount || s.Amount != nil || s.Fee != nil {
				t.Errorf("session changed after invalid amount: %+v", s)
			}
		})
	}
}

func TestAmountTierUsesEnteredValue(t *testing.T) {
	m, _ := newTestManager()
	m.Start(alice)
	if _, err := m.ChooseSendMethod("u1", domain.PayPal); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ChooseSendDetail("u1", domain.PayPalBalance); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ChooseReceiveMethod("u1", domain.Wise); err != nil {
		t.Fatal(err)
	}

	s, err := m.SubmitAmount("u1", "9.999")
	mustStep(t, s, err, StepConfirm)
	if !s.Fee.Percent.Equal(decimal.NewFromInt(10)) {
		t.Errorf("percent = %s, want 10", s.Fee.Percent)
	}
	if s.Fee.FeeAmount.StringFixed(2) != "1.00" || s.Fee.ReceiveAmount.StringFixed(2) != "9.00" {
		t.Errorf("fee = %s receive = %s, want 1.00 and 9.00", s.Fee.FeeAmount, s.Fee.ReceiveAmount)
	}
}

func TestOutOfOrderStepIsStateError(t *testing.T) {
	m, _ := newTestManager()
	m.Start(alice)

	if _, err := m.SubmitAmount("u1", "10"); !errors.Is(err, deskerr.ErrState) {
		t.Errorf("amount before methods error = %v, want state error", err)
	}
	if _, err := m.Confirm("u1"); !errors.Is(err, deskerr.ErrState) {
		t.Errorf("early confirm error = %v, want state error", err)
	}
}

func TestNoSession(t *testing.T) {
	m, _ := newTestManager()

	if _, err := m.ChooseSendMethod("ghost", domain.PayPal); !errors.Is(err, deskerr.ErrState) {
		t.Errorf("error = %v, want state error", err)
	}
	if err := m.Cancel("ghost"); !errors.Is(err, deskerr.ErrState) {
		t.Errorf("cancel error = %v, want state error", err)
	}
}

func TestStartOverwritesPreviousSession(t *testing.T) {
	m, _ := newTestManager()
	m.Start(alice)
	if _, err := m.ChooseSendMethod("u1", domain.Venmo); err != nil {
		t.Fatal(err)
	}

	s := m.Start(alice)
	if s.Step != StepSendMethod || s.SendMethod != "" {
		t.Errorf("restart did not reset session: %+v", s)
	}
	if m.Len() != 1 {
		t.Errorf("sessions = %d, want 1", m.Len())
	}
}

func TestCancelDeletesSession(t *testing.T) {
	m, _ := newTestManager()
	m.Start(alice)

	if err := m.Cancel("u1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, ok := m.Get("u1"); ok {
		t.Error("session still present after cancel")
	}
}

func TestIntakeTimeoutFromLastStep(t *testing.T) {
	m, clock := newTestManager()
	m.Start(alice)

	clock.Advance(4 * time.Minute)
	if _, err := m.ChooseSendMethod("u1", domain.Skrill); err != nil {
		t.Fatalf("step within timeout: %v", err)
	}

	// Eight minutes after start but only four after the last step.
	clock.Advance(4 * time.Minute)
	if _, err := m.ChooseReceiveMethod("u1", domain.Zelle); err != nil {
		t.Fatalf("step within timeout of last step: %v", err)
	}

	clock.Advance(5*time.Minute + time.Second)
	_, err := m.SubmitAmount("u1", "10")
	if !errors.Is(err, deskerr.ErrState) {
		t.Fatalf("expired step error = %v, want state error", err)
	}
	if m.Len() != 0 {
		t.Error("expired session should be deleted on detection")
	}
}

func TestConfirmTimeoutIsShorter(t *testing.T) {
	m, clock := newTestManager()
	m.Start(alice)
	if _, err := m.ChooseSendMethod("u1", domain.Skrill); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ChooseReceiveMethod("u1", domain.Zelle); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SubmitAmount("u1", "10"); err != nil {
		t.Fatal(err)
	}

	clock.Advance(3 * time.Minute)
	if _, err := m.Confirm("u1"); !errors.Is(err, deskerr.ErrState) {
		t.Errorf("confirm after 3m error = %v, want state error", err)
	}
}

func TestSweep(t *testing.T) {
	m, clock := newTestManager()
	m.Start(alice)
	m.Start(domain.Actor{ID: "u2"})

	clock.Advance(3 * time.Minute)
	m.Start(domain.Actor{ID: "u3"})

	clock.Advance(3 * time.Minute)
	if n := m.Sweep(); n != 2 {
		t.Errorf("Sweep removed %d, want 2", n)
	}
	if _, ok := m.Get("u3"); !ok {
		t.Error("fresh session was swept")
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	m, _ := newTestManager()
	m.Start(alice)
	if _, err := m.ChooseSendMethod("u1", domain.Zelle); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ChooseReceiveMethod("u1", domain.Wise); err != nil {
		t.Fatal(err)
	}
	s, err := m.SubmitAmount("u1", "50")
	if err != nil {
		t.Fatal(err)
	}

	s.Fee.Note = "tampered"
	again, _ := m.Get("u1")
	if again.Fee.Note == "tampered" {
		t.Error("snapshot shares fee breakdown with stored session")
	}
}
