package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChannelValid(t *testing.T) {
	assert.True(t, ChannelEmail.Valid())
	assert.True(t, ChannelSMS.Valid())
	assert.False(t, Channel("fax").Valid())
	assert.False(t, Channel("").Valid())
}

func TestOTPPayload(t *testing.T) {
	p := OTPPayload("123456", 5*time.Minute)

	assert.Contains(t, p.Subject, "123456")
	assert.Contains(t, p.Body, "123456")
	assert.Contains(t, p.Body, "5 minutes")
}
