package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterAccountMessage struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	UseHashid bool
	OnResponse func(resp *RegisterAccountResponse)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// Validate will run validation rules
func (e RegisterAccountMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.Name, validation.Required),
			validation.Field(&e.Email, validation.Required, is.Email),
			validation.Field(&e.Password, validation.Required),
		)
	}, "Invalid registration payload")
}

type RegisterAccountResponse struct {
	Account *Account
	// Role is the primary role granted at registration
	Role RoleName
	// AccessToken lets the fresh account call the API before verifying its
	// email. Empty unless the handler has a token service.
	AccessToken string
	Success     bool
}

// RegisterAccountHandler creates the account, grants its initial roles, and
// starts email verification. The first account in an empty store is seeded
// with super_admin on top of the default user role.
type RegisterAccountHandler struct {
	repo     RepositoryManager
	codes    *CodeManager
	tokens   TokenService
	mailer   Mailer
	activity ActivitySink
	logger   Logger
}

// NewRegisterAccountHandler creates a handler with sane defaults.
func NewRegisterAccountHandler(repo RepositoryManager, codes *CodeManager) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:     repo,
		codes:    codes,
		mailer:   NewLogMailer(defLogger{}),
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithTokenService enables the bootstrap access token in the response.
func (h *RegisterAccountHandler) WithTokenService(tokens TokenService) *RegisterAccountHandler {
	h.tokens = tokens
	return h
}

// WithMailer sets the delivery channel for verification codes.
func (h *RegisterAccountHandler) WithMailer(mailer Mailer) *RegisterAccountHandler {
	if mailer != nil {
		h.mailer = mailer
	}
	return h
}

// WithActivitySink sets the sink used to emit registration events.
func (h *RegisterAccountHandler) WithActivitySink(sink ActivitySink) *RegisterAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterAccountHandler) WithLogger(logger Logger) *RegisterAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	account := &Account{}
	var code string
	var roles []RoleName

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.PasswordHash = hash
		account.Name = event.Name
		account.Email = event.Email
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				account.ID = id
			}
		}

		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return err
		}

		// Counted after the insert so the bootstrap decision and the insert
		// commit atomically.
		total, err := h.repo.Accounts().CountTx(ctx, tx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count accounts")
		}

		roles = []RoleName{RoleUser}
		if total == 1 {
			roles = []RoleName{RoleSuperAdmin, RoleUser}
		}

		if err := h.repo.Accounts().AssignRolesTx(ctx, tx, account.ID, roles); err != nil {
			return err
		}

		if code, err = h.codes.GenerateEmailCodeTx(ctx, tx, account); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	if err := h.mailer.SendVerificationCode(ctx, account.Email, code); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to deliver verification email")
	}

	var accessToken string
	if h.tokens != nil {
		var err error
		accessToken, err = h.tokens.IssueAccessToken(NewIdentity(account, roles))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue bootstrap token")
		}
	}

	h.recordActivity(ctx, account)

	if event.OnResponse != nil {
		event.OnResponse(&RegisterAccountResponse{
			Account:     account,
			Role:        roles[0],
			AccessToken: accessToken,
			Success:     true,
		})
	}

	return nil
}

func (h *RegisterAccountHandler) recordActivity(ctx context.Context, account *Account) {
	event := ActivityEvent{
		EventType:  ActivityEventRegistered,
		UserID:     account.ID.String(),
		Email:      account.Email,
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during registration: %v", err)
	}
}
