package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-vpn-shop/internal/domain"
	"telegram-vpn-shop/internal/domain/model"
	"telegram-vpn-shop/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `telegram_id, username, total_spent, total_months, trial_used, agreed_to_terms, banned, referred_by, referral_balance, registered_at`

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (` + userColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (telegram_id) DO UPDATE SET
  username=$2, total_spent=$3, total_months=$4, trial_used=$5, agreed_to_terms=$6, banned=$7, referred_by=$8, referral_balance=$9;`
	_, err := execSQL(ctx, r.pool, tx, q, u.TelegramID, u.Username, u.TotalSpent, u.TotalMonths,
		u.TrialUsed, u.AgreedToTerms, u.Banned, u.ReferredBy, u.ReferralBalance, u.RegisteredAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *userRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, telegramID int64) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE telegram_id=$1;`, telegramID)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.User, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users ORDER BY registered_at DESC;`)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(&u.TelegramID, &u.Username, &u.TotalSpent, &u.TotalMonths,
			&u.TrialUsed, &u.AgreedToTerms, &u.Banned, &u.ReferredBy, &u.ReferralBalance, &u.RegisteredAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *userRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *userRepo) SetBanned(ctx context.Context, tx repository.Tx, telegramID int64, banned bool) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE users SET banned=$2 WHERE telegram_id=$1;`, telegramID, banned)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepo) AddSpent(ctx context.Context, tx repository.Tx, telegramID int64, amount float64, months int) error {
	const q = `UPDATE users SET total_spent = total_spent + $2, total_months = total_months + $3 WHERE telegram_id=$1;`
	if _, err := execSQL(ctx, r.pool, tx, q, telegramID, amount, months); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.TelegramID, &u.Username, &u.TotalSpent, &u.TotalMonths,
		&u.TrialUsed, &u.AgreedToTerms, &u.Banned, &u.ReferredBy, &u.ReferralBalance, &u.RegisteredAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}
