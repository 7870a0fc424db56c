package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strconv"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Default lifetimes for outstanding secrets
var (
	DefaultEmailCodeWindow = 5 * time.Minute
	DefaultResetWindow     = 5 * time.Minute
)

// Lengths in raw bytes of the password-reset secrets before hex encoding
const (
	resetTokenBytes = 32
	resetCodeBytes  = 16
)

// NOTE: clearing columns through the ORM silently skips zero values on these
// models, so consumption goes through raw SQL.
var ConsumeEmailCodeSQL = `UPDATE "verifications" AS "vrf"
SET
	"email_verification_code" = NULL,
	"email_verification_expires_at" = NULL,
	"is_verified" = TRUE,
	"updated_at" = ?
WHERE "vrf"."account_id" = ?;`

var ConsumeResetSecretsSQL = `UPDATE "verifications" AS "vrf"
SET
	"password_reset_token" = NULL,
	"password_reset_code" = NULL,
	"password_reset_expires_at" = NULL,
	"updated_at" = ?
WHERE "vrf"."account_id" = ?;`

// CodeManager issues and redeems the short-lived secrets: 6-digit email
// verification codes and the password-reset pair. The reset token is stored
// but never checked; the mailed reset code is the only secret redeemed.
type CodeManager struct {
	repo            RepositoryManager
	hasher          PasswordAuthenticator
	scheduler       *ResetExpiryScheduler
	emailCodeWindow time.Duration
	resetWindow     time.Duration
	logger          Logger
}

// NewCodeManager creates a CodeManager with default windows
func NewCodeManager(repo RepositoryManager) *CodeManager {
	return &CodeManager{
		repo:            repo,
		hasher:          BcryptHasher{},
		emailCodeWindow: DefaultEmailCodeWindow,
		resetWindow:     DefaultResetWindow,
		logger:          defLogger{},
	}
}

func (m *CodeManager) WithLogger(logger Logger) *CodeManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

func (m *CodeManager) WithHasher(hasher PasswordAuthenticator) *CodeManager {
	if hasher != nil {
		m.hasher = hasher
	}
	return m
}

// WithScheduler arms reset-expiry notifications. Without one, resets still
// expire against the persisted window but no event is emitted.
func (m *CodeManager) WithScheduler(scheduler *ResetExpiryScheduler) *CodeManager {
	m.scheduler = scheduler
	return m
}

func (m *CodeManager) WithEmailCodeWindow(window time.Duration) *CodeManager {
	if window > 0 {
		m.emailCodeWindow = window
	}
	return m
}

func (m *CodeManager) WithResetWindow(window time.Duration) *CodeManager {
	if window > 0 {
		m.resetWindow = window
	}
	return m
}

// GenerateEmailCodeTx issues a fresh 6-digit code for the account, replacing
// any outstanding one, and returns the code for delivery.
func (m *CodeManager) GenerateEmailCodeTx(ctx context.Context, tx bun.IDB, account *Account) (string, error) {
	code, err := generateNumericCode()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}

	record, err := m.repo.Verifications().GetOrCreateByAccountTx(ctx, tx, account.ID)
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(m.emailCodeWindow)
	record.EmailVerificationCode = code
	record.EmailVerificationExpiresAt = &expiresAt

	if _, err := m.repo.Verifications().UpdateTx(ctx, tx, record, repository.UpdateByID(record.ID.String())); err != nil {
		return "", err
	}

	return code, nil
}

// ValidateEmailCode redeems a code submitted for the given email. Unknown
// emails, mismatched, consumed, and expired codes all fail the same way.
func (m *CodeManager) ValidateEmailCode(ctx context.Context, email, code string) error {
	if code == "" {
		return invalidCode(email)
	}

	return m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := m.repo.Accounts().GetByEmailTx(ctx, tx, email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return invalidCode(email)
			}
			return err
		}

		record, err := m.repo.Verifications().GetByAccountTx(ctx, tx, account.ID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return invalidCode(email)
			}
			return err
		}

		now := time.Now()
		if !record.EmailCodeLive(now) || record.EmailVerificationCode != code {
			return invalidCode(email)
		}

		_, err = tx.NewRaw(ConsumeEmailCodeSQL, now, account.ID).Exec(ctx)
		return err
	})
}

// GenerateResetSecrets issues the reset pair for an account, persists it, and
// arms the expiry notification. The returned code is the mailable secret.
func (m *CodeManager) GenerateResetSecrets(ctx context.Context, account *Account) (string, error) {
	var code string

	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		code, err = m.GenerateResetSecretsTx(ctx, tx, account)
		return err
	})
	if err != nil {
		return "", err
	}

	if m.scheduler != nil {
		m.scheduler.Schedule(account.ID.String(), account.Email, m.resetWindow)
	}

	return code, nil
}

// GenerateResetSecretsTx persists a fresh reset pair inside the caller's
// transaction. Scheduling is left to the caller since the write may roll back.
func (m *CodeManager) GenerateResetSecretsTx(ctx context.Context, tx bun.IDB, account *Account) (string, error) {
	token, err := generateHexSecret(resetTokenBytes)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset token")
	}

	code, err := generateHexSecret(resetCodeBytes)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset code")
	}

	record, err := m.repo.Verifications().GetOrCreateByAccountTx(ctx, tx, account.ID)
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(m.resetWindow)
	record.PasswordResetToken = token
	record.PasswordResetCode = code
	record.PasswordResetExpiresAt = &expiresAt

	if _, err := m.repo.Verifications().UpdateTx(ctx, tx, record, repository.UpdateByID(record.ID.String())); err != nil {
		return "", err
	}

	return code, nil
}

// ValidateAndConsumeResetCode redeems a reset code and installs the new
// password. Reusing the current password is rejected before anything is
// written. On success the reset fields are cleared and the expiry notification
// is cancelled. Email verification state is left untouched: a reset changes
// the password, it does not stand in for the verification code.
func (m *CodeManager) ValidateAndConsumeResetCode(ctx context.Context, code, newPassword string) (*Account, error) {
	if code == "" || newPassword == "" {
		return nil, ErrCodeInvalidOrExpired
	}

	var account *Account

	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := m.repo.Verifications().GetByResetCodeTx(ctx, tx, code)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrCodeInvalidOrExpired
			}
			return err
		}

		now := time.Now()
		if !record.ResetCodeLive(now) {
			return ErrCodeInvalidOrExpired
		}

		account, err = m.repo.Accounts().GetByIDTx(ctx, tx, record.AccountID.String())
		if err != nil {
			return err
		}

		if err := m.hasher.ComparePasswordAndHash(newPassword, account.PasswordHash); err == nil {
			return ErrSamePassword
		}

		hash, err := m.hasher.HashPassword(newPassword)
		if err != nil {
			return err
		}

		if err := m.repo.Accounts().ResetPasswordTx(ctx, tx, account.ID, hash); err != nil {
			return err
		}

		_, err = tx.NewRaw(ConsumeResetSecretsSQL, now, account.ID).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if m.scheduler != nil {
		m.scheduler.Cancel(account.ID.String())
	}

	return account, nil
}

func invalidCode(email string) error {
	return ErrCodeInvalidOrExpired.Clone().WithMetadata(map[string]any{
		"email": email,
	})
}

// generateNumericCode draws a uniform 6-digit code in [100000, 999999]
func generateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

func generateHexSecret(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
