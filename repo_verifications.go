package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Verifications is the verification-record repository, keyed one row per
// account
type Verifications interface {
	repository.Repository[*VerificationRecord]

	GetByAccount(ctx context.Context, accountID uuid.UUID) (*VerificationRecord, error)
	GetByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*VerificationRecord, error)
	GetOrCreateByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*VerificationRecord, error)
	GetByResetCodeTx(ctx context.Context, tx bun.IDB, code string) (*VerificationRecord, error)
}

type verifications struct {
	repository.Repository[*VerificationRecord]
	db *bun.DB
}

var (
	_ Verifications                              = (*verifications)(nil)
	_ repository.Repository[*VerificationRecord] = (*verifications)(nil)
)

func NewVerificationsRepository(db *bun.DB) Verifications {
	repo := repository.NewRepository[*VerificationRecord](db, repository.ModelHandlers[*VerificationRecord]{
		NewRecord: func() *VerificationRecord { return &VerificationRecord{} },
		GetID: func(v *VerificationRecord) uuid.UUID {
			if v == nil {
				return uuid.Nil
			}
			return v.ID
		},
		SetID: func(v *VerificationRecord, id uuid.UUID) {
			if v != nil {
				v.ID = id
			}
		},
	})

	return &verifications{
		Repository: repo,
		db:         db,
	}
}

func (r *verifications) GetByAccount(ctx context.Context, accountID uuid.UUID) (*VerificationRecord, error) {
	return r.GetByAccountTx(ctx, r.db, accountID)
}

func (r *verifications) GetByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*VerificationRecord, error) {
	record := &VerificationRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.account_id = ?", accountID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"account_id": accountID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

// GetByResetCodeTx resolves the record holding an outstanding reset code.
// Codes are random and cleared on consumption, so at most one row matches.
func (r *verifications) GetByResetCodeTx(ctx context.Context, tx bun.IDB, code string) (*VerificationRecord, error) {
	record := &VerificationRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.password_reset_code = ?", code).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (r *verifications) GetOrCreateByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*VerificationRecord, error) {
	record, err := r.GetByAccountTx(ctx, tx, accountID)
	if err == nil {
		return record, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	record = &VerificationRecord{
		ID:        uuid.New(),
		AccountID: accountID,
	}

	return r.Repository.CreateTx(ctx, tx, record)
}
