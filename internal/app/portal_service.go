// internal/app/portal_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gl3e_manager/internal/domain/audit"
	"gl3e_manager/internal/domain/notify"
	"gl3e_manager/internal/domain/student"
	idb "gl3e_manager/internal/infra/database"
	"gl3e_manager/internal/infra/sms"

	"github.com/sirupsen/logrus"
)

// ErrInvalidDestination means the email address or phone number failed
// validation. Never retried; purely local.
var ErrInvalidDestination = errors.New("invalid destination for the chosen channel")

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
var spacesPattern = regexp.MustCompile(`\s+`)

// VerifyError is the typed verification failure surfaced by
// VerifyAndAllocate; Remaining is meaningful only for IncorrectCode.
type VerifyError struct {
	Reason    VerifyReason
	Remaining int
}

func (e *VerifyError) Error() string {
	if e.Reason == ReasonIncorrectCode {
		return fmt.Sprintf("incorrect code, %d attempt(s) remaining", e.Remaining)
	}
	return fmt.Sprintf("verification failed: %s", strings.ToLower(string(e.Reason)))
}

// ChallengeReceipt is returned to the caller after a code was sent.
type ChallengeReceipt struct {
	ChallengeRef string
	Channel      notify.Channel
	Destination  string
	Provider     string
}

// AllocationResult describes a successful verify-and-allocate flow.
type AllocationResult struct {
	ProjectID          int64
	ProjectTitle       string
	ProjectDescription string
	StudentName        string
	StudentMatricule   string
}

// PortalService is the boundary exposed to the web layer: it glues the OTP
// lifecycle, the notification dispatcher and the allocation engine together
// and audits every step.
type PortalService struct {
	students   student.Repository
	otps       *OTPService
	alloc      *AllocationService
	dispatcher *Dispatcher
	auditor    *AuditRecorder
	logger     *logrus.Logger
}

func NewPortalService(
	students student.Repository,
	otps *OTPService,
	alloc *AllocationService,
	dispatcher *Dispatcher,
	auditor *AuditRecorder,
	logger *logrus.Logger,
) *PortalService {
	return &PortalService{
		students:   students,
		otps:       otps,
		alloc:      alloc,
		dispatcher: dispatcher,
		auditor:    auditor,
		logger:     logger,
	}
}

// RequestChallenge issues an OTP for the named student and dispatches it over
// the requested channel. Phone destinations are normalized before the
// challenge is created so the stored destination matches what was dialed.
func (s *PortalService) RequestChallenge(ctx context.Context, studentName string, channel notify.Channel, destination string) (*ChallengeReceipt, error) {
	studentName = sanitizeInput(studentName)
	destination = sanitizeInput(destination)

	st, err := s.students.GetByFullName(ctx, studentName)
	if err != nil {
		return nil, err
	}

	if st.HasProject {
		s.auditor.Record(ctx, &audit.Entry{
			StudentID:     nullInt64(st.ID),
			Action:        audit.ActionOTPRequestBlocked,
			ContactMethod: nullString(string(channel)),
			ContactValue:  nullString(destination),
			Success:       false,
			ErrorMessage:  nullString("student already has a project"),
		})
		return nil, idb.ErrStudentAlreadyAllocated
	}

	switch channel {
	case notify.ChannelEmail:
		if !emailPattern.MatchString(destination) {
			return nil, fmt.Errorf("%w: malformed email address", ErrInvalidDestination)
		}
	case notify.ChannelSMS:
		normalized, err := sms.NormalizeCameroonPhone(destination)
		if err != nil {
			// International numbers are accepted as-is if already E.164.
			normalized, err = sms.NormalizeForTwilio(destination)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
			}
		}
		destination = normalized
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}

	challenge, err := s.otps.Issue(ctx, st.ID, channel, destination)
	if err != nil {
		return nil, err
	}

	payload := notify.OTPPayload(challenge.Code, s.otps.cfg.Expiry)
	result, err := s.dispatcher.Send(ctx, channel, destination, payload)
	if err != nil {
		s.auditor.Record(ctx, &audit.Entry{
			StudentID:     nullInt64(st.ID),
			Action:        audit.ActionOTPSendFailed,
			ContactMethod: nullString(string(channel)),
			ContactValue:  nullString(destination),
			Success:       false,
			ErrorMessage:  nullString(err.Error()),
		})
		return nil, err
	}

	if channel == notify.ChannelSMS {
		if err := s.otps.RecordProvider(ctx, challenge.Ref, result.Provider); err != nil {
			s.logger.WithFields(logrus.Fields{
				"challenge": challenge.Ref,
				"error":     err.Error(),
			}).Warn("failed to record delivering provider")
		}
	}

	s.auditor.Record(ctx, &audit.Entry{
		StudentID:     nullInt64(st.ID),
		Action:        audit.ActionOTPRequested,
		ContactMethod: nullString(string(channel)),
		ContactValue:  nullString(destination),
		Provider:      nullString(result.Provider),
		Success:       true,
	})

	return &ChallengeReceipt{
		ChallengeRef: challenge.Ref,
		Channel:      channel,
		Destination:  destination,
		Provider:     result.Provider,
	}, nil
}

// VerifyAndAllocate validates the submitted code and, on success, assigns a
// project to the challenge's student.
func (s *PortalService) VerifyAndAllocate(ctx context.Context, challengeRef, code string) (*AllocationResult, error) {
	outcome, err := s.otps.Verify(ctx, sanitizeInput(challengeRef), sanitizeInput(code))
	if err != nil {
		return nil, err
	}

	if !outcome.OK {
		if c := outcome.Challenge; c != nil {
			s.auditor.Record(ctx, &audit.Entry{
				StudentID:     nullInt64(c.StudentID),
				Action:        audit.ActionOTPVerifyFailed,
				ContactMethod: nullString(string(c.Channel)),
				ContactValue:  nullString(c.Destination),
				Provider:      c.Provider,
				Success:       false,
				ErrorMessage:  nullString(string(outcome.Reason)),
			})
		}
		return nil, &VerifyError{Reason: outcome.Reason, Remaining: outcome.RemainingAttempts}
	}

	challenge := outcome.Challenge
	project, err := s.alloc.Allocate(ctx, challenge.StudentID)
	if err != nil {
		s.auditor.Record(ctx, &audit.Entry{
			StudentID:     nullInt64(challenge.StudentID),
			Action:        audit.ActionProjectAssignFailed,
			ContactMethod: nullString(string(challenge.Channel)),
			ContactValue:  nullString(challenge.Destination),
			Provider:      challenge.Provider,
			Success:       false,
			ErrorMessage:  nullString(err.Error()),
		})
		return nil, err
	}

	s.auditor.Record(ctx, &audit.Entry{
		StudentID:     nullInt64(challenge.StudentID),
		Action:        audit.ActionProjectAssigned,
		ContactMethod: nullString(string(challenge.Channel)),
		ContactValue:  nullString(challenge.Destination),
		Provider:      challenge.Provider,
		Success:       true,
	})

	st, err := s.students.GetByID(ctx, challenge.StudentID)
	if err != nil {
		return nil, err
	}

	return &AllocationResult{
		ProjectID:          project.ID,
		ProjectTitle:       project.Title,
		ProjectDescription: project.Description.String,
		StudentName:        st.FullName,
		StudentMatricule:   st.Matricule,
	}, nil
}

// Health exposes the dispatcher's read-only health and metrics snapshot.
func (s *PortalService) Health() HealthReport {
	return s.dispatcher.Health()
}

// sanitizeInput trims, strips HTML tags, collapses whitespace and caps the
// length of untrusted user input. The cap counts runes so a multi-byte name
// is never cut mid-character.
func sanitizeInput(text string) string {
	text = strings.TrimSpace(text)
	if runes := []rune(text); len(runes) > 255 {
		text = string(runes[:255])
	}
	text = htmlTagPattern.ReplaceAllString(text, "")
	return spacesPattern.ReplaceAllString(text, " ")
}
