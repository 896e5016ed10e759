// internal/app/otp_service.go
package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"gl3e_manager/internal/domain/notify"
	"gl3e_manager/internal/domain/otp"
	idb "gl3e_manager/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// VerifyReason is the precise failure reason of a verification attempt, so
// the caller can present an actionable message.
type VerifyReason string

const (
	ReasonNotFound          VerifyReason = "NOT_FOUND"
	ReasonAlreadyUsed       VerifyReason = "ALREADY_USED"
	ReasonExpired           VerifyReason = "EXPIRED"
	ReasonAttemptsExhausted VerifyReason = "ATTEMPTS_EXHAUSTED"
	ReasonIncorrectCode     VerifyReason = "INCORRECT_CODE"
)

// VerifyOutcome is the tagged result of OTPService.Verify. Reason is empty
// when OK is true; RemainingAttempts is meaningful only for IncorrectCode.
type VerifyOutcome struct {
	OK                bool
	Reason            VerifyReason
	RemainingAttempts int
	Challenge         *otp.Challenge
}

// OTPConfig bundles the lifecycle parameters of issued codes.
type OTPConfig struct {
	Length      int
	Expiry      time.Duration
	MaxAttempts int
}

// OTPService manages the lifecycle of OTP challenges: issuing, expiry,
// attempt limiting and the exactly-once verification flip.
type OTPService struct {
	challenges otp.Repository
	cfg        OTPConfig
	logger     *logrus.Logger

	now func() time.Time
}

func NewOTPService(challenges otp.Repository, cfg OTPConfig, logger *logrus.Logger) *OTPService {
	return &OTPService{
		challenges: challenges,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Issue generates a fresh fixed-length numeric code and persists a new
// challenge. Re-requests always create a new row; nothing is updated in
// place. Has no effect on allocation state.
func (s *OTPService) Issue(ctx context.Context, studentID int64, channel notify.Channel, destination string) (*otp.Challenge, error) {
	code, err := generateCode(s.cfg.Length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp code: %w", err)
	}

	now := s.now().UTC()
	c := &otp.Challenge{
		Ref:         uuid.NewString(),
		StudentID:   studentID,
		Code:        code,
		Channel:     channel,
		Destination: destination,
		ExpiresAt:   now.Add(s.cfg.Expiry),
		Verified:    false,
		Attempts:    0,
	}
	if err := s.challenges.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to persist otp challenge: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"challenge": c.Ref,
		"student":   studentID,
		"channel":   channel,
	}).Info("otp challenge issued")
	return c, nil
}

// Verify checks a submitted code against a challenge. Checks run in a strict
// order: existence, already-used, expiry, attempt ceiling. Only a challenge
// that passes all of them is charged an attempt; the charge is persisted even
// when the code turns out to be wrong, which makes the counter a hard ceiling
// regardless of outcome.
func (s *OTPService) Verify(ctx context.Context, ref, code string) (*VerifyOutcome, error) {
	c, err := s.challenges.GetByRef(ctx, ref)
	if err != nil {
		if err == idb.ErrChallengeNotFound {
			return &VerifyOutcome{Reason: ReasonNotFound}, nil
		}
		return nil, fmt.Errorf("failed to load otp challenge %s: %w", ref, err)
	}

	if c.Verified {
		return &VerifyOutcome{Reason: ReasonAlreadyUsed, Challenge: c}, nil
	}
	if c.Expired(s.now().UTC()) {
		return &VerifyOutcome{Reason: ReasonExpired, Challenge: c}, nil
	}
	if c.Attempts >= s.cfg.MaxAttempts {
		return &VerifyOutcome{Reason: ReasonAttemptsExhausted, Challenge: c}, nil
	}

	attempts, err := s.challenges.ChargeAttempt(ctx, ref, s.cfg.MaxAttempts)
	if err != nil {
		if err == idb.ErrAttemptsExhausted {
			// A concurrent attempt hit the ceiling first.
			return &VerifyOutcome{Reason: ReasonAttemptsExhausted, Challenge: c}, nil
		}
		return nil, fmt.Errorf("failed to charge otp attempt for %s: %w", ref, err)
	}
	c.Attempts = attempts

	if c.Code != code {
		remaining := s.cfg.MaxAttempts - attempts
		s.logger.WithFields(logrus.Fields{
			"challenge": ref,
			"attempts":  attempts,
			"remaining": remaining,
		}).Warn("otp verification failed: incorrect code")
		return &VerifyOutcome{Reason: ReasonIncorrectCode, RemainingAttempts: remaining, Challenge: c}, nil
	}

	flipped, err := s.challenges.MarkVerified(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to mark otp %s verified: %w", ref, err)
	}
	if !flipped {
		// A concurrent verification with the correct code won the flip.
		return &VerifyOutcome{Reason: ReasonAlreadyUsed, Challenge: c}, nil
	}
	c.Verified = true

	s.logger.WithField("challenge", ref).Info("otp challenge verified")
	return &VerifyOutcome{OK: true, Challenge: c}, nil
}

// ActiveChallenge returns the student's most recent challenge that is still
// usable: unverified, unexpired and with attempts remaining.
func (s *OTPService) ActiveChallenge(ctx context.Context, studentID int64) (*otp.Challenge, error) {
	return s.challenges.GetActiveByStudent(ctx, studentID, s.cfg.MaxAttempts)
}

// RecordProvider stamps the provider that delivered the code after a send.
func (s *OTPService) RecordProvider(ctx context.Context, ref, provider string) error {
	return s.challenges.SetProvider(ctx, ref, provider)
}

// generateCode samples length digits uniformly.
func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
