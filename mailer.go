package auth

import "context"

// logMailer writes deliveries to the logger instead of sending them. It is
// the default wiring for local development and tests.
type logMailer struct {
	logger Logger
}

// NewLogMailer creates a Mailer that only logs
func NewLogMailer(logger Logger) Mailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &logMailer{logger: logger}
}

func (m *logMailer) SendVerificationCode(ctx context.Context, to, code string) error {
	m.logger.Info("mail verification code %s to %s", code, to)
	return nil
}

func (m *logMailer) SendResetLink(ctx context.Context, to, code string) error {
	m.logger.Info("mail password reset code %s to %s", code, to)
	return nil
}
