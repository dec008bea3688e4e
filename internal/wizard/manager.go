package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/exchange-desk/internal/deskerr"
	"github.com/dvloznov/exchange-desk/internal/domain"
	"github.com/dvloznov/exchange-desk/internal/fees"
)

// Default timeouts.
const (
	DefaultTimeout        = 5 * time.Minute
	DefaultConfirmTimeout = 2 * time.Minute
)

// Options configures a Manager.
type Options struct {
	// Timeout is how long a session before confirmation stays alive since
	// the last accepted step.
	Timeout time.Duration
	// ConfirmTimeout applies once the amount has been entered, counted from
	// that step.
	ConfirmTimeout time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Manager owns the session table. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	timeout        time.Duration
	confirmTimeout time.Duration
	now            func() time.Time
}

// NewManager returns an empty session table.
func NewManager(opts Options) *Manager {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		sessions:       make(map[string]*Session),
		timeout:        opts.Timeout,
		confirmTimeout: opts.ConfirmTimeout,
		now:            opts.Now,
	}
}

// Start opens a session for user, replacing any unfinished one.
func (m *Manager) Start(user domain.Actor) Session {
	now := m.now()
	s := &Session{
		UserID:    user.ID,
		UserName:  user.Name,
		Step:      StepSendMethod,
		CreatedAt: now,
		TouchedAt: now,
	}

	m.mu.Lock()
	m.sessions[user.ID] = s
	m.mu.Unlock()

	return s.snapshot()
}

// Get returns the live session for userID.
func (m *Manager) Get(userID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.live(userID)
	if err != nil {
		return Session{}, false
	}
	return s.snapshot(), true
}

// ChooseSendMethod records the method the user sends.
func (m *Manager) ChooseSendMethod(userID string, method domain.Method) (Session, error) {
	return m.advance(userID, StepSendMethod, func(s *Session) error {
		if !method.IsKnown() {
			return deskerr.Validation("unknown payment method %q", method)
		}
		s.SendMethod = method
		if method.IsCompound() {
			s.Step = StepSendDetail
		} else {
			s.Step = StepReceiveMethod
		}
		return nil
	})
}

// ChooseSendDetail records the detail of a compound send method.
func (m *Manager) ChooseSendDetail(userID, detail string) (Session, error) {
	return m.advance(userID, StepSendDetail, func(s *Session) error {
		if !s.SendMethod.AcceptsDetail(detail) {
			return deskerr.Validation("%q is not an option for %s", detail, s.SendMethod)
		}
		s.SendDetail = detail
		s.Step = StepReceiveMethod
		return nil
	})
}

// ChooseReceiveMethod records the method the user wants to receive. The
// send method itself is never offered.
func (m *Manager) ChooseReceiveMethod(userID string, method domain.Method) (Session, error) {
	return m.advance(userID, StepReceiveMethod, func(s *Session) error {
		if !method.IsKnown() {
			return deskerr.Validation("unknown payment method %q", method)
		}
		if method == s.SendMethod {
			return deskerr.Validation("you cannot receive the same method you send (%s)", method)
		}
		s.ReceiveMethod = method
		if method.IsCompound() {
			s.Step = StepReceiveDetail
		} else {
			s.Step = StepAmount
		}
		return nil
	})
}

// ChooseReceiveDetail records the detail of a compound receive method.
func (m *Manager) ChooseReceiveDetail(userID, detail string) (Session, error) {
	return m.advance(userID, StepReceiveDetail, func(s *Session) error {
		if !s.ReceiveMethod.AcceptsDetail(detail) {
			return deskerr.Validation("%q is not an option for %s", detail, s.ReceiveMethod)
		}
		s.ReceiveDetail = detail
		s.Step = StepAmount
		return nil
	})
}

// SubmitAmount parses the sent amount and computes the fee breakdown shown
// before confirmation. Invalid input leaves the session unchanged.
func (m *Manager) SubmitAmount(userID, raw string) (Session, error) {
	return m.advance(userID, StepAmount, func(s *Session) error {
		amount, err := domain.ParseAmount(raw)
		if err != nil {
			return deskerr.Validation("invalid amount: %v", err)
		}
		fee := fees.Calculate(s.SendMethod, s.SendDetail, s.ReceiveMethod, amount)
		s.Amount = &amount
		s.Fee = &fee
		s.Step = StepConfirm
		return nil
	})
}

// Confirm consumes the session and returns the completed intake record.
func (m *Manager) Confirm(userID string) (domain.IntakeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.live(userID)
	if err != nil {
		return domain.IntakeRecord{}, err
	}
	if s.Step != StepConfirm {
		return domain.IntakeRecord{}, deskerr.State("nothing to confirm yet, the wizard is waiting for %s", s.Step)
	}

	delete(m.sessions, userID)
	return s.intake(), nil
}

// Cancel discards the session.
func (m *Manager) Cancel(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.live(userID); err != nil {
		return err
	}
	delete(m.sessions, userID)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep deletes every expired session and returns how many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("Swept expired wizard sessions")
			}
		}
	}
}

// advance applies fn to the live session of userID if it is waiting for
// want. fn mutates a copy, so a rejected step leaves the session untouched.
func (m *Manager) advance(userID string, want Step, fn func(s *Session) error) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.live(userID)
	if err != nil {
		return Session{}, err
	}
	if s.Step != want {
		return Session{}, deskerr.State("the wizard is waiting for %s, not %s", s.Step, want)
	}

	next := s.snapshot()
	if err := fn(&next); err != nil {
		return s.snapshot(), err
	}
	next.TouchedAt = m.now()
	m.sessions[userID] = &next
	return next.snapshot(), nil
}

// live returns the unexpired session of userID. An expired session is
// deleted on sight. Callers hold m.mu.
func (m *Manager) live(userID string) (*Session, error) {
	s, ok := m.sessions[userID]
	if !ok {
		return nil, deskerr.State("no active exchange wizard, please start over")
	}
	if m.expired(s, m.now()) {
		delete(m.sessions, userID)
		return nil, deskerr.State("session expired, please start over")
	}
	return s, nil
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	limit := m.timeout
	if s.Step == StepConfirm {
		limit = m.confirmTimeout
	}
	return now.Sub(s.TouchedAt) > limit
}
