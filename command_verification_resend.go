package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type ResendVerificationMessage struct {
	Email string `json:"email"`
}

func (e ResendVerificationMessage) Type() string { return "account.verification_resend" }

// ResendVerificationHandler reissues the email verification code. An already
// verified account still gets a fresh code; redeeming it is harmless.
type ResendVerificationHandler struct {
	repo     RepositoryManager
	codes    *CodeManager
	mailer   Mailer
	activity ActivitySink
	logger   Logger
}

// NewResendVerificationHandler creates a handler with sane defaults.
func NewResendVerificationHandler(repo RepositoryManager, codes *CodeManager) *ResendVerificationHandler {
	return &ResendVerificationHandler{
		repo:     repo,
		codes:    codes,
		mailer:   NewLogMailer(defLogger{}),
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithMailer sets the delivery channel for verification codes.
func (h *ResendVerificationHandler) WithMailer(mailer Mailer) *ResendVerificationHandler {
	if mailer != nil {
		h.mailer = mailer
	}
	return h
}

// WithActivitySink sets the sink used to emit resend events.
func (h *ResendVerificationHandler) WithActivitySink(sink ActivitySink) *ResendVerificationHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ResendVerificationHandler) WithLogger(logger Logger) *ResendVerificationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResendVerificationHandler) Execute(ctx context.Context, event ResendVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification resend",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendVerificationHandler) execute(ctx context.Context, event ResendVerificationMessage) error {
	account := &Account{}
	var code string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = h.repo.Accounts().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrAccountNotFound.Clone().WithMetadata(map[string]any{
					"email": event.Email,
				})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for resend")
		}

		code, err = h.codes.GenerateEmailCodeTx(ctx, tx, account)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resend verification code")
	}

	if err := h.mailer.SendVerificationCode(ctx, account.Email, code); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to deliver verification email")
	}

	h.recordActivity(ctx, account)

	return nil
}

func (h *ResendVerificationHandler) recordActivity(ctx context.Context, account *Account) {
	event := ActivityEvent{
		EventType:  ActivityEventVerificationResent,
		UserID:     account.ID.String(),
		Email:      account.Email,
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during verification resend: %v", err)
	}
}
