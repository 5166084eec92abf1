package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessageIncludesHeadersAndBody(t *testing.T) {
	msg := buildMessage("results@sentropy.test", "user@example.com", "Your query is ready", "see attached")
	s := string(msg)
	assert.Contains(t, s, "From: results@sentropy.test\r\n")
	assert.Contains(t, s, "To: user@example.com\r\n")
	assert.Contains(t, s, "Subject: Your query is ready\r\n")
	assert.Contains(t, s, "\r\n\r\nsee attached")
}

func TestSendErrorsWithoutConfiguredAddress(t *testing.T) {
	n := &SMTPNotifier{}
	err := n.Send(context.Background(), "user@example.com", "subject", "body")
	assert.Error(t, err)
}
