package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-vpn-shop/internal/domain"
	"telegram-vpn-shop/internal/domain/ports/repository"
	"telegram-vpn-shop/internal/infra/security"
)

var _ repository.SettingsRepository = (*settingsRepo)(nil)

// secretKeys are encrypted at rest. Everything else is stored as plaintext.
var secretKeys = map[string]struct{}{
	"panel_password":      {},
	"yookassa_secret_key": {},
	"cryptobot_token":     {},
	"heleket_api_key":     {},
	"tonapi_key":          {},
}

type settingsRepo struct {
	pool *pgxpool.Pool
	enc  *security.EncryptionService // nil disables at-rest encryption
}

func NewSettingsRepo(pool *pgxpool.Pool, enc *security.EncryptionService) *settingsRepo {
	return &settingsRepo{pool: pool, enc: enc}
}

func (r *settingsRepo) Get(ctx context.Context, key string) (string, error) {
	row, err := pickRow(ctx, r.pool, nil, `SELECT value FROM bot_settings WHERE key=$1;`, key)
	if err != nil {
		return "", err
	}
	var v string
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", domain.ErrReadDatabaseRow
	}
	return r.reveal(key, v)
}

func (r *settingsRepo) Set(ctx context.Context, key, value string) error {
	stored := value
	if r.enc != nil && value != "" {
		if _, secret := secretKeys[key]; secret {
			enc, err := r.enc.Encrypt(value)
			if err != nil {
				return domain.ErrOperationFailed
			}
			stored = enc
		}
	}
	const q = `
INSERT INTO bot_settings (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = $2;`
	if _, err := execSQL(ctx, r.pool, nil, q, key, stored); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *settingsRepo) All(ctx context.Context) (map[string]string, error) {
	rows, err := queryRows(ctx, r.pool, nil, `SELECT key, value FROM bot_settings;`)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		plain, err := r.reveal(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = plain
	}
	return out, nil
}

func (r *settingsRepo) reveal(key, stored string) (string, error) {
	if r.enc == nil || stored == "" {
		return stored, nil
	}
	if _, secret := secretKeys[key]; !secret {
		return stored, nil
	}
	plain, err := r.enc.Decrypt(stored)
	if err != nil {
		// value predates encryption; hand it back as-is
		return stored, nil
	}
	return plain, nil
}
