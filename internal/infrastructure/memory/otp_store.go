package memory

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/zeni-bff/internal/domain"
	"github.com/zeni-bff/internal/pkg/clock"
	"golang.org/x/crypto/bcrypt"
)

const otpSpace = 1_000_000

// OTPStore keeps at most one live passcode per subject. Hashing runs outside
// the lock; Verify consumes a record only if it is still the one it compared
// against, so a code succeeds at most once.
type OTPStore struct {
	mu      sync.Mutex
	records map[string]*domain.OTPRecord
	ttl     time.Duration
	cost    int
	clock   clock.Clocker
}

// NewOTPStore builds a store whose codes live for ttl and are hashed with the
// given bcrypt cost. Costs outside bcrypt's range fall back to bcrypt.MinCost.
func NewOTPStore(ttl time.Duration, cost int, clk clock.Clocker) *OTPStore {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.MinCost
	}
	if clk == nil {
		clk = clock.New()
	}
	return &OTPStore{
		records: make(map[string]*domain.OTPRecord),
		ttl:     ttl,
		cost:    cost,
		clock:   clk,
	}
}

// Issue generates a fresh six-digit code for subject, replacing any earlier one.
func (s *OTPStore) Issue(subject string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpace))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.records[subject] = &domain.OTPRecord{
		Subject:   subject,
		CodeHash:  hash,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	return code, nil
}

// Verify consumes the subject's code when it matches. An expired record is
// dropped; a mismatching one stays live until it expires or is replaced.
func (s *OTPStore) Verify(subject, code string) error {
	s.mu.Lock()
	rec, ok := s.records[subject]
	if !ok {
		s.mu.Unlock()
		return domain.ErrOTPNotFound
	}
	if rec.Expired(s.clock.Now()) {
		delete(s.records, subject)
		s.mu.Unlock()
		return domain.ErrOTPExpired
	}
	s.mu.Unlock()

	if bcrypt.CompareHashAndPassword(rec.CodeHash, []byte(code)) != nil {
		return domain.ErrOTPMismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[subject]
	switch {
	case !ok:
		return domain.ErrOTPNotFound
	case cur != rec:
		// Reissued while comparing; the matched code is stale.
		return domain.ErrOTPMismatch
	}
	delete(s.records, subject)
	return nil
}

// Revoke drops the subject's record, if any.
func (s *OTPStore) Revoke(subject string) {
	s.mu.Lock()
	delete(s.records, subject)
	s.mu.Unlock()
}

// SweepExpired removes every expired record and returns how many were removed.
func (s *OTPStore) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	removed := 0
	for subject, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, subject)
			removed++
		}
	}
	return removed
}

func (s *OTPStore) Stats() domain.OTPStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	st := domain.OTPStats{Total: len(s.records)}
	for _, rec := range s.records {
		if rec.Expired(now) {
			st.Expired++
		} else {
			st.Valid++
		}
	}
	return st
}
