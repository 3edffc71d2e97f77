package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestNotify_SkipsEmptyRecipient(t *testing.T) {
	mailer := &MockMailer{}
	svc := NewNotificationService(mailer, zap.NewNop())

	assert.False(t, svc.Notify(context.Background(), "  ", "subject", "body"))
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNotify_SwallowsFailures(t *testing.T) {
	mailer := &MockMailer{}
	mailer.On("Send", mock.Anything, "parent@example.org", "subject", "body").Return(errors.New("smtp timeout"))
	svc := NewNotificationService(mailer, zap.NewNop())

	assert.False(t, svc.Notify(context.Background(), "parent@example.org", "subject", "body"))
	mailer.AssertExpectations(t)
}

func TestNotify_Sent(t *testing.T) {
	mailer := &MockMailer{}
	mailer.On("Send", mock.Anything, "parent@example.org", "subject", "body").Return(nil)
	svc := NewNotificationService(mailer, zap.NewNop())

	assert.True(t, svc.Notify(context.Background(), "parent@example.org", "subject", "body"))
}

func TestLogMailer_NeverFails(t *testing.T) {
	assert.NoError(t, NewLogMailer(zap.NewNop()).Send(context.Background(), "a@b.c", "s", "b"))
}
