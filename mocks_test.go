package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	auth "github.com/nightnovels/go-auth"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// testConfig implements auth.Config
type testConfig struct{}

func (testConfig) GetAccessSigningKey() string               { return "access-test-key" }
func (testConfig) GetRefreshSigningKey() string              { return "refresh-test-key" }
func (testConfig) GetSigningMethod() string                  { return "HS256" }
func (testConfig) GetContextKey() string                     { return "user" }
func (testConfig) GetAccessTokenDuration() time.Duration     { return time.Hour }
func (testConfig) GetRefreshTokenDuration() time.Duration    { return 24 * time.Hour }
func (testConfig) GetExtendedRefreshDuration() time.Duration { return 30 * 24 * time.Hour }
func (testConfig) GetTokenLookup() string                    { return "header:Authorization" }
func (testConfig) GetAuthScheme() string                     { return "Bearer" }
func (testConfig) GetIssuer() string                         { return "test-issuer" }
func (testConfig) GetAudience() []string                     { return []string{"test-app"} }

// capturingSink records activity events for assertions. The scheduler fires
// from its own goroutine, so access is guarded.
type capturingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt auth.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) Events() []auth.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]auth.ActivityEvent(nil), c.events...)
}

func (c *capturingSink) ByType(eventType auth.ActivityEventType) []auth.ActivityEvent {
	var out []auth.ActivityEvent
	for _, evt := range c.Events() {
		if evt.EventType == eventType {
			out = append(out, evt)
		}
	}
	return out
}

// MockMailer implements auth.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendVerificationCode(ctx context.Context, to, code string) error {
	args := m.Called(ctx, to, code)
	return args.Error(0)
}

func (m *MockMailer) SendResetLink(ctx context.Context, to, code string) error {
	args := m.Called(ctx, to, code)
	return args.Error(0)
}

// capturingMailer keeps the last delivered codes so flow tests can redeem them
type capturingMailer struct {
	mu                sync.Mutex
	verificationCodes map[string]string
	resetCodes        map[string]string
}

func newCapturingMailer() *capturingMailer {
	return &capturingMailer{
		verificationCodes: map[string]string{},
		resetCodes:        map[string]string{},
	}
}

func (m *capturingMailer) SendVerificationCode(ctx context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verificationCodes[to] = code
	return nil
}

func (m *capturingMailer) SendResetLink(ctx context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetCodes[to] = code
	return nil
}

func (m *capturingMailer) VerificationCode(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verificationCodes[to]
}

func (m *capturingMailer) ResetCode(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetCodes[to]
}

// newTestDB opens a private in-memory SQLite database with the schema
// created and the role taxonomy seeded
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	models := []any{
		(*auth.Account)(nil),
		(*auth.Role)(nil),
		(*auth.AccountRole)(nil),
		(*auth.VerificationRecord)(nil),
	}
	for _, model := range models {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	for _, name := range auth.RoleHierarchy {
		role := &auth.Role{ID: uuid.New(), Name: name}
		_, err := db.NewInsert().Model(role).Exec(ctx)
		require.NoError(t, err)
	}

	return db
}

func newTestRepo(t *testing.T) auth.RepositoryManager {
	t.Helper()
	return auth.NewRepositoryManager(newTestDB(t))
}
