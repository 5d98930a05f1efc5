package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
	"github.com/oksasatya/go-account-service/internal/domain/repository"
)

const uniqueViolation = "23505"

const accountColumns = `id, email_address, password, first_name, last_name, avatar_url,
	is_verified, otp_value, otp_used, is_deactivated, created_at, updated_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Insert(ctx context.Context, a *entity.Account) error {
	var otpValue *int
	var otpUsed *bool
	if a.OTP != nil {
		otpValue, otpUsed = &a.OTP.Value, &a.OTP.Used
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (email_address, password, first_name, last_name, avatar_url,
			is_verified, otp_value, otp_used, is_deactivated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, a.Email, a.PasswordHash, a.FirstName, a.LastName, a.AvatarURL,
		a.IsVerified, otpValue, otpUsed, a.IsDeactivated)

	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email_address = $1`, email)
	return scanAccount(row)
}

func (r *AccountRepository) ListExcludingEmail(ctx context.Context, email string) ([]*entity.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email_address <> $1
		ORDER BY created_at, id
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*entity.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateByID uses COALESCE so that nil fields keep their stored value.
func (r *AccountRepository) UpdateByID(ctx context.Context, id string, upd repository.AccountUpdate) (*entity.Account, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE accounts SET
			email_address  = COALESCE($2, email_address),
			first_name     = COALESCE($3, first_name),
			last_name      = COALESCE($4, last_name),
			password       = COALESCE($5, password),
			avatar_url     = COALESCE($6, avatar_url),
			is_deactivated = is_deactivated OR COALESCE($7, FALSE),
			updated_at     = now()
		WHERE id = $1
		RETURNING `+accountColumns,
		id, upd.Email, upd.FirstName, upd.LastName, upd.PasswordHash, upd.AvatarURL, upd.IsDeactivated)
	return scanAccount(row)
}

func (r *AccountRepository) DeleteByID(ctx context.Context, id string) (*entity.Account, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `DELETE FROM accounts WHERE id = $1 RETURNING `+accountColumns, id)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (*entity.Account, error) {
	a := &entity.Account{}
	var otpValue *int32
	var otpUsed *bool
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.AvatarURL,
		&a.IsVerified, &otpValue, &otpUsed, &a.IsDeactivated, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	if otpValue != nil {
		a.OTP = &entity.OTP{Value: int(*otpValue), Used: otpUsed != nil && *otpUsed}
	}
	return a, nil
}

// mapError translates driver errors into repository sentinels.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateKey, pgErr.ConstraintName)
	}
	return err
}

// validID guards the uuid column; anything else cannot exist.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
