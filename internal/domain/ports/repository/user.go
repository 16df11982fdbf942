package repository

import (
	"context"

	"telegram-vpn-shop/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByTelegramID(ctx context.Context, tx Tx, telegramID int64) (*model.User, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.User, error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
	SetBanned(ctx context.Context, tx Tx, telegramID int64, banned bool) error
	AddSpent(ctx context.Context, tx Tx, telegramID int64, amount float64, months int) error
}
