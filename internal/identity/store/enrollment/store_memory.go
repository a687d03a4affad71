package enrollment

import (
	"context"
	"sync"
	"time"

	"agora/internal/identity/models"
	id "agora/pkg/domain"
	"agora/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded enrollment-code store. Claim performs the
// whole check-then-bind under one lock hold, so two concurrent redemptions of
// a single-use code can never both succeed.
type InMemory struct {
	mu    sync.RWMutex
	codes map[string]models.EnrollmentCode
	clock func() time.Time
}

// Option configures an InMemory store.
type Option func(*InMemory)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *InMemory) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewInMemory constructs an empty in-memory enrollment store.
func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{
		codes: make(map[string]models.EnrollmentCode),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Create(_ context.Context, code *models.EnrollmentCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.codes[code.Code]; exists {
		return sentinel.ErrConflict
	}
	s.codes[code.Code] = *code
	return nil
}

func (s *InMemory) FindByCode(_ context.Context, code string) (*models.EnrollmentCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.codes[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemory) Claim(_ context.Context, code string, candidate id.PrincipalID) (*models.EnrollmentCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := c.CanRedeemBy(candidate); err != nil {
		return nil, err
	}
	c.ApplyRedemption(candidate, s.clock())
	s.codes[code] = c
	return &c, nil
}

func (s *InMemory) Execute(
	_ context.Context,
	code string,
	validate func(c *models.EnrollmentCode) error,
	mutate func(c *models.EnrollmentCode),
) (*models.EnrollmentCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	mutate(&c)
	s.codes[code] = c
	return &c, nil
}
