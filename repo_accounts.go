package auth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ResetAccountPasswordSQL = `UPDATE "accounts" AS "acc"
SET
	"password_hash" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

var AccountRoleNamesSQL = `SELECT "rol"."role"
FROM "roles" AS "rol"
INNER JOIN "account_roles" AS "acr" ON "acr"."role_id" = "rol"."id"
WHERE "acr"."account_id" = ?;`

var AccountRolesWithDescriptionSQL = `SELECT "rol"."id", "rol"."role", "rol"."description"
FROM "roles" AS "rol"
INNER JOIN "account_roles" AS "acr" ON "acr"."role_id" = "rol"."id"
WHERE "acr"."account_id" = ?;`

// Accounts is the account repository. Create enforces email uniqueness with a
// typed failure, and role membership lives here because it is a persistence
// concern: tokens and sessions re-derive roles through these lookups.
type Accounts interface {
	repository.Repository[*Account]

	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)

	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)

	CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error)
	AssignRolesTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, roles []RoleName) error

	GetRoles(ctx context.Context, accountID uuid.UUID) ([]RoleName, error)
	GetRolesTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) ([]RoleName, error)
	GetRolesWithDescriptionTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) ([]Role, error)

	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

// CreateTx inserts an account after an explicit duplicate check so callers get
// ErrDuplicateEmail rather than a driver specific constraint error. The unique
// index on email remains the final arbiter under concurrency.
func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)

	existing, err := a.GetByEmailTx(ctx, tx, record.Email)
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}

	if existing != nil {
		return nil, ErrDuplicateEmail.Clone().WithMetadata(map[string]any{
			"email": record.Email,
		})
	}

	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *accounts) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	q := tx.NewSelect().Model((*Account)(nil))
	for _, c := range criteria {
		q = c(q)
	}
	return q.Count(ctx)
}

// AssignRolesTx links an account to each named role. Role rows are seeded by
// migration; a missing row means the deployment skipped them.
func (a *accounts) AssignRolesTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, roles []RoleName) error {
	for _, name := range roles {
		role := &Role{}
		err := tx.NewSelect().
			Model(role).
			Where("?TableAlias.role = ?", name).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				return goerrors.New("role is not seeded", goerrors.CategoryInternal).
					WithMetadata(map[string]any{
						"role": name,
					})
			}
			return err
		}

		link := &AccountRole{
			ID:        uuid.New(),
			AccountID: accountID,
			RoleID:    role.ID,
		}
		if _, err := tx.NewInsert().Model(link).Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (a *accounts) GetRoles(ctx context.Context, accountID uuid.UUID) ([]RoleName, error) {
	return a.GetRolesTx(ctx, a.db, accountID)
}

func (a *accounts) GetRolesTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) ([]RoleName, error) {
	var names []RoleName
	if err := tx.NewRaw(AccountRoleNamesSQL, accountID).Scan(ctx, &names); err != nil {
		return nil, err
	}
	return sortRolesByPrivilege(names), nil
}

func (a *accounts) GetRolesWithDescriptionTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) ([]Role, error) {
	var roles []Role
	if err := tx.NewRaw(AccountRolesWithDescriptionSQL, accountID).Scan(ctx, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (a *accounts) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *accounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, ResetAccountPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.Email = normalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// sortRolesByPrivilege orders known roles by hierarchy tier; unknown roles
// keep their relative order at the tail.
func sortRolesByPrivilege(roles []RoleName) []RoleName {
	ordered := make([]RoleName, 0, len(roles))
	seen := make(map[RoleName]bool, len(roles))

	for _, tier := range RoleHierarchy {
		for _, r := range roles {
			if r == tier && !seen[r] {
				ordered = append(ordered, r)
				seen[r] = true
			}
		}
	}

	for _, r := range roles {
		if !seen[r] {
			ordered = append(ordered, r)
			seen[r] = true
		}
	}

	return ordered
}
