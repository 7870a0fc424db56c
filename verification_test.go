package auth_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	auth "github.com/nightnovels/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

func lowerBcryptCost(t *testing.T) {
	t.Helper()
	restore := auth.BcryptCost
	auth.BcryptCost = bcrypt.MinCost
	t.Cleanup(func() { auth.BcryptCost = restore })
}

func createAccount(t *testing.T, repo auth.RepositoryManager, email, password string) *auth.Account {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	account, err := repo.Accounts().Create(context.Background(), &auth.Account{
		Name:         "Pepe Rone",
		Email:        email,
		PasswordHash: hash,
	})
	require.NoError(t, err)
	return account
}

func generateEmailCode(t *testing.T, repo auth.RepositoryManager, cm *auth.CodeManager, account *auth.Account) string {
	t.Helper()

	var code string
	err := repo.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		code, err = cm.GenerateEmailCodeTx(ctx, tx, account)
		return err
	})
	require.NoError(t, err)
	return code
}

func TestGenerateEmailCode(t *testing.T) {
	lowerBcryptCost(t)
	ctx := context.Background()
	repo := newTestRepo(t)
	cm := auth.NewCodeManager(repo)

	account := createAccount(t, repo, "pepe.rone@example.com", "secret-password")
	code := generateEmailCode(t, repo, cm, account)

	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
	assert.GreaterOrEqual(t, code, "100000")

	record, err := repo.Verifications().GetByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.VerificationPending, record.EmailCodeState(time.Now()))
	assert.False(t, record.Verified)

	t.Run("reissue replaces the outstanding code", func(t *testing.T) {
		next := generateEmailCode(t, repo, cm, account)
		assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), next)

		record, err := repo.Verifications().GetByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, next, record.EmailVerificationCode)
	})
}

func TestValidateEmailCode(t *testing.T) {
	lowerBcryptCost(t)
	ctx := context.Background()
	repo := newTestRepo(t)
	cm := auth.NewCodeManager(repo)

	account := createAccount(t, repo, "pepe.rone@example.com", "secret-password")
	code := generateEmailCode(t, repo, cm, account)

	t.Run("wrong code fails", func(t *testing.T) {
		err := cm.ValidateEmailCode(ctx, account.Email, "000000")
		assert.True(t, auth.IsInvalidOrExpiredCode(err))
	})

	t.Run("unknown email fails the same way", func(t *testing.T) {
		err := cm.ValidateEmailCode(ctx, "nobody@example.com", code)
		assert.True(t, auth.IsInvalidOrExpiredCode(err))
	})

	t.Run("valid code consumes and verifies", func(t *testing.T) {
		require.NoError(t, cm.ValidateEmailCode(ctx, account.Email, code))

		record, err := repo.Verifications().GetByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, record.Verified)
		assert.Empty(t, record.EmailVerificationCode)
		assert.Nil(t, record.EmailVerificationExpiresAt)
	})

	t.Run("consumed code cannot be replayed", func(t *testing.T) {
		err := cm.ValidateEmailCode(ctx, account.Email, code)
		assert.True(t, auth.IsInvalidOrExpiredCode(err))
	})
}

func TestValidateEmailCodeExpired(t *testing.T) {
	lowerBcryptCost(t)
	ctx := context.Background()
	repo := newTestRepo(t)
	cm := auth.NewCodeManager(repo).WithEmailCodeWindow(time.Millisecond)

	account := createAccount(t, repo, "pepe.rone@example.com", "secret-password")
	code := generateEmailCode(t, repo, cm, account)

	time.Sleep(10 * time.Millisecond)

	err := cm.ValidateEmailCode(ctx, account.Email, code)
	assert.True(t, auth.IsInvalidOrExpiredCode(err))
}

func TestGenerateResetSecrets(t *testing.T) {
	lowerBcryptCost(t)
	ctx := context.Background()
	repo := newTestRepo(t)
	sink := &capturingSink{}
	scheduler := auth.NewResetExpiryScheduler(sink, nil)
	defer scheduler.Stop()

	cm := auth.NewCodeManager(repo).WithScheduler(scheduler)

	account := createAccount(t, repo, "pepe.rone@example.com", "secret-password")

	code, err := cm.GenerateResetSecrets(ctx, account)
	require.NoError(t, err)

	// mailed code is 16 random bytes hex encoded
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), code)

	record, err := repo.Verifications().GetByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, code, record.PasswordResetCode)
	// the server side token is longer and never leaves storage
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), record.PasswordResetToken)
	assert.NotEqual(t, record.PasswordResetToken, record.PasswordResetCode)
	assert.Equal(t, auth.VerificationPending, record.ResetState(time.Now()))

	assert.True(t, scheduler.Cancel(account.ID.String()), "expiry timer should have been armed")
}

func TestValidateAndConsumeResetCode(t *testing.T) {
	lowerBcryptCost(t)
	ctx := context.Background()
	repo := newTestRepo(t)
	sink := &capturingSink{}
	scheduler := auth.NewResetExpiryScheduler(sink, nil)
	defer scheduler.Stop()

	cm := auth.NewCodeManager(repo).WithScheduler(scheduler)

	account := createAccount(t, repo, "pepe.rone@example.com", "old-password")

	code, err := cm.GenerateResetSecrets(ctx, account)
	require.NoError(t, err)

	t.Run("reusing the current password is rejected", func(t *testing.T) {
		_, err := cm.ValidateAndConsumeResetCode(ctx, code, "old-password")
		assert.ErrorIs(t, err, auth.ErrSamePassword)
	})

	t.Run("unknown code fails", func(t *testing.T) {
		_, err := cm.ValidateAndConsumeResetCode(ctx, "ffffffffffffffffffffffffffffffff", "new-password")
		assert.True(t, auth.IsInvalidOrExpiredCode(err))
	})

	t.Run("valid code installs the new password", func(t *testing.T) {
		updated, err := cm.ValidateAndConsumeResetCode(ctx, code, "new-password")
		require.NoError(t, err)
		assert.Equal(t, account.ID, updated.ID)

		fresh, err := repo.Accounts().GetByEmail(ctx, account.Email)
		require.NoError(t, err)
		assert.NoError(t, auth.ComparePasswordAndHash("new-password", fresh.PasswordHash))
		assert.Error(t, auth.ComparePasswordAndHash("old-password", fresh.PasswordHash))

		record, err := repo.Verifications().GetByAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Empty(t, record.PasswordResetCode)
		assert.Empty(t, record.PasswordResetToken)
		assert.Nil(t, record.PasswordResetExpiresAt)
		assert.False(t, record.Verified, "a reset must not substitute for email verification")

		assert.False(t, scheduler.Cancel(account.ID.String()), "expiry timer should be gone")
	})

	t.Run("consumed code cannot be replayed", func(t *testing.T) {
		_, err := cm.ValidateAndConsumeResetCode(ctx, code, "another-password")
		assert.True(t, auth.IsInvalidOrExpiredCode(err))
	})
}

func TestValidateAndConsumeResetCodeExpired(t *testing.T) {
	lowerBcryptCost(t)
	ctx := context.Background()
	repo := newTestRepo(t)
	cm := auth.NewCodeManager(repo).WithResetWindow(time.Millisecond)

	account := createAccount(t, repo, "pepe.rone@example.com", "old-password")

	code, err := cm.GenerateResetSecrets(ctx, account)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = cm.ValidateAndConsumeResetCode(ctx, code, "new-password")
	assert.True(t, auth.IsInvalidOrExpiredCode(err))
}

func TestAccountsCreateDuplicateEmail(t *testing.T) {
	lowerBcryptCost(t)
	repo := newTestRepo(t)

	createAccount(t, repo, "pepe.rone@example.com", "secret-password")

	_, err := repo.Accounts().Create(context.Background(), &auth.Account{
		Name:         "Impostor",
		Email:        "Pepe.Rone@Example.com",
		PasswordHash: "whatever",
	})
	require.Error(t, err)
	assert.True(t, auth.IsDuplicateEmail(err))
}

func TestAccountRoles(t *testing.T) {
	lowerBcryptCost(t)
	ctx := context.Background()
	repo := newTestRepo(t)

	account := createAccount(t, repo, "pepe.rone@example.com", "secret-password")

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Accounts().AssignRolesTx(ctx, tx, account.ID, []auth.RoleName{
			auth.RoleUser, auth.RoleSuperAdmin,
		})
	})
	require.NoError(t, err)

	roles, err := repo.Accounts().GetRoles(ctx, account.ID)
	require.NoError(t, err)
	// ordered by privilege regardless of insertion order
	assert.Equal(t, []auth.RoleName{auth.RoleSuperAdmin, auth.RoleUser}, roles)

	t.Run("roles with description", func(t *testing.T) {
		err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			detailed, err := repo.Accounts().GetRolesWithDescriptionTx(ctx, tx, account.ID)
			if err != nil {
				return err
			}
			assert.Len(t, detailed, 2)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return repo.Accounts().AssignRolesTx(ctx, tx, uuid.New(), []auth.RoleName{"root"})
		})
		assert.Error(t, err)
	})

	t.Run("account without roles", func(t *testing.T) {
		other := createAccount(t, repo, "other@example.com", "secret-password")
		roles, err := repo.Accounts().GetRoles(ctx, other.ID)
		require.NoError(t, err)
		assert.Empty(t, roles)
	})
}
