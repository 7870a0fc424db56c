package auth_test

import (
	"testing"

	auth "github.com/nightnovels/go-auth"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	restore := auth.BcryptCost
	auth.BcryptCost = bcrypt.MinCost
	defer func() { auth.BcryptCost = restore }()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true, // bcrypt can hash empty strings!
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := auth.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, hash)

			err = auth.ComparePasswordAndHash(tt.password, hash)
			assert.NoError(t, err)
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	restore := auth.BcryptCost
	auth.BcryptCost = bcrypt.MinCost
	defer func() { auth.BcryptCost = restore }()

	password := "testPassword123!"
	hash, err := auth.HashPassword(password)
	assert.NoError(t, err)

	t.Run("Matching password", func(t *testing.T) {
		assert.NoError(t, auth.ComparePasswordAndHash(password, hash))
	})

	t.Run("Wrong password", func(t *testing.T) {
		err := auth.ComparePasswordAndHash("wrongPassword", hash)
		assert.ErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})

	t.Run("Invalid hash", func(t *testing.T) {
		err := auth.ComparePasswordAndHash(password, "not-a-bcrypt-hash")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})
}

func TestRandomPasswordHash(t *testing.T) {
	restore := auth.BcryptCost
	auth.BcryptCost = bcrypt.MinCost
	defer func() { auth.BcryptCost = restore }()

	hash := auth.RandomPasswordHash()
	assert.NotEmpty(t, hash)

	// a random password should never compare against a chosen one
	assert.Error(t, auth.ComparePasswordAndHash("guessable", hash))
}

func TestBcryptHasher(t *testing.T) {
	restore := auth.BcryptCost
	auth.BcryptCost = bcrypt.MinCost
	defer func() { auth.BcryptCost = restore }()

	var hasher auth.PasswordAuthenticator = auth.BcryptHasher{}

	hash, err := hasher.HashPassword("secret")
	assert.NoError(t, err)
	assert.NoError(t, hasher.ComparePasswordAndHash("secret", hash))
	assert.Error(t, hasher.ComparePasswordAndHash("other", hash))
}
