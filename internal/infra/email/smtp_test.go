package email

import (
	"testing"

	"gl3e_manager/internal/domain/notify"

	"github.com/stretchr/testify/assert"
)

func TestBuildTransportModes(t *testing.T) {
	testCases := []struct {
		name   string
		port   int
		useTLS bool
		want   []transportMode
	}{
		{"port 465 is implicit only", 465, false, []transportMode{modeImplicitTLS}},
		{"port 465 ignores preference", 465, true, []transportMode{modeImplicitTLS}},
		{"587 preferring starttls", 587, false, []transportMode{modeSTARTTLS, modeImplicitTLS}},
		{"587 preferring implicit", 587, true, []transportMode{modeImplicitTLS, modeSTARTTLS}},
		{"2525 preferring implicit", 2525, true, []transportMode{modeImplicitTLS, modeSTARTTLS}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, buildTransportModes(tc.port, tc.useTLS))
		})
	}
}

func TestSMTPClient_Configured(t *testing.T) {
	assert.True(t, NewSMTPClient(SMTPConfig{Host: "smtp.example.com", Username: "u", Password: "p"}).Configured())
	assert.False(t, NewSMTPClient(SMTPConfig{Host: "smtp.example.com"}).Configured())
}

func TestBuildMessage(t *testing.T) {
	c := NewSMTPClient(SMTPConfig{From: "noreply@example.com"})
	msg := string(c.buildMessage("student@example.com", notify.Payload{
		Subject: "Votre code",
		Body:    "Code: 123456",
	}))

	assert.Contains(t, msg, "From: noreply@example.com\r\n")
	assert.Contains(t, msg, "To: student@example.com\r\n")
	assert.Contains(t, msg, "Subject: Votre code\r\n")
	assert.Contains(t, msg, "\r\n\r\nCode: 123456\r\n")
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "stu***@example.com", MaskEmail("student@example.com"))
	assert.Equal(t, "ab***@x.cm", MaskEmail("ab@x.cm"))
	assert.Equal(t, "***", MaskEmail("not-an-email"))
}
