package repository

import (
	"context"

	"telegram-vpn-shop/internal/domain/model"
)

type HostRepository interface {
	Save(ctx context.Context, tx Tx, h *model.Host) error
	Delete(ctx context.Context, tx Tx, name string) error
	FindByName(ctx context.Context, tx Tx, name string) (*model.Host, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Host, error)
}

type PlanRepository interface {
	Create(ctx context.Context, tx Tx, p *model.Plan) (int64, error)
	Delete(ctx context.Context, tx Tx, id int64) error
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Plan, error)
	ListForHost(ctx context.Context, tx Tx, hostName string) ([]*model.Plan, error)
}
