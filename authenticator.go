package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
)

// LoginResult carries both tokens plus the roles-annotated profile returned
// to the client
type LoginResult struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Profile      *Profile `json:"profile"`
}

// Auther implements Authenticator on top of the repositories and the token
// service
type Auther struct {
	repo         RepositoryManager
	tokenService TokenService
	hasher       PasswordAuthenticator
	activitySink ActivitySink
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, config Config) *Auther {
	return &Auther{
		repo:         repo,
		tokenService: NewTokenService(config, defLogger{}),
		hasher:       BcryptHasher{},
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

func (s *Auther) WithHasher(hasher PasswordAuthenticator) *Auther {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login authenticates an email and password pair. An unknown email and a
// wrong password fail with the same error value so responses cannot be used
// to probe which addresses hold accounts.
func (s *Auther) Login(ctx context.Context, email, password string, remember bool) (*LoginResult, error) {
	account, err := s.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", map[string]any{
				"email":  email,
				"reason": "unknown email",
			})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, account.ID.String(), map[string]any{
			"email":  email,
			"reason": "wrong password",
		})
		return nil, ErrInvalidCredentials
	}

	verified, err := s.isVerified(ctx, account)
	if err != nil {
		return nil, err
	}
	if !verified {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, account.ID.String(), map[string]any{
			"email":  email,
			"reason": "email not verified",
		})
		return nil, ErrEmailNotVerified.Clone().WithMetadata(map[string]any{
			"needVerification": true,
			"email":            account.Email,
		})
	}

	roles, err := s.repo.Accounts().GetRoles(ctx, account.ID)
	if err != nil {
		s.logger.Error("Login role lookup failed: %s", err)
		return nil, err
	}

	identity := NewIdentity(account, roles)

	accessToken, err := s.tokenService.IssueAccessToken(identity)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenService.IssueRefreshToken(identity, remember)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, account.ID.String(), map[string]any{
		"email": account.Email,
	})

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Profile: &Profile{
			ID:        account.ID,
			Name:      account.Name,
			Email:     account.Email,
			Roles:     roles,
			Verified:  true,
			CreatedAt: account.CreatedAt,
		},
	}, nil
}

// Refresh exchanges a live refresh token for a fresh access token. Roles are
// re-derived from persistence, so a role change lands on the next refresh.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokenService.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}

	account, err := s.repo.Accounts().GetByID(ctx, claims.UserID())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.logger.Warn("Refresh rejected token for missing account %s", claims.UserID())
			return "", ErrTokenMalformed
		}
		return "", err
	}

	roles, err := s.repo.Accounts().GetRoles(ctx, account.ID)
	if err != nil {
		return "", err
	}

	return s.tokenService.IssueAccessToken(NewIdentity(account, roles))
}

// SessionFromToken verifies an access token and exposes it as a Session
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokenService.VerifyAccessToken(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed: %s", err)
		return nil, err
	}

	session, err := sessionFromAccessClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims: %s", err)
		return nil, err
	}

	return session, nil
}

func (s *Auther) isVerified(ctx context.Context, account *Account) (bool, error) {
	record, err := s.repo.Verifications().GetByAccount(ctx, account.ID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return record.Verified, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

type accountIdentity struct {
	id    string
	email string
	roles []RoleName
}

// NewIdentity adapts an account plus its role membership to the Identity
// carried into token claims
func NewIdentity(account *Account, roles []RoleName) Identity {
	return accountIdentity{
		id:    account.ID.String(),
		email: account.Email,
		roles: append([]RoleName(nil), roles...),
	}
}

func (a accountIdentity) ID() string        { return a.id }
func (a accountIdentity) Email() string     { return a.email }
func (a accountIdentity) Roles() []RoleName { return a.roles }
