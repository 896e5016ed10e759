// internal/domain/notify/provider.go
package notify

import (
	"context"
	"fmt"
	"time"
)

// Channel is the abstract delivery medium, independent of which provider backs it.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Valid reports whether c is a channel this system can deliver on.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// Payload is the message handed to a provider. SMS providers send Body only;
// the email provider uses Subject as the mail subject line.
type Payload struct {
	Subject string
	Body    string
}

// Provider is a concrete third-party transport (an SMS gateway or mail relay).
type Provider interface {
	Name() string
	Send(ctx context.Context, destination string, p Payload) error
}

// SendResult reports a successful dispatch: which provider delivered the
// message and how many attempts it took across all providers tried.
type SendResult struct {
	Provider string
	Attempts int
}

// OTPPayload builds the verification-code message sent to a student.
func OTPPayload(code string, expiry time.Duration) Payload {
	minutes := int(expiry.Minutes())
	return Payload{
		Subject: fmt.Sprintf("Code de vérification GL3E - %s", code),
		Body: fmt.Sprintf(
			"Votre code OTP GL3E: %s\n\nValide pendant %d minutes.\nNe partagez JAMAIS ce code!",
			code, minutes,
		),
	}
}
