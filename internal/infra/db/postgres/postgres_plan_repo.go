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

var (
	_ repository.HostRepository = (*hostRepo)(nil)
	_ repository.PlanRepository = (*planRepo)(nil)
)

type hostRepo struct{ pool *pgxpool.Pool }

func NewHostRepo(pool *pgxpool.Pool) *hostRepo { return &hostRepo{pool: pool} }

func (r *hostRepo) Save(ctx context.Context, tx repository.Tx, h *model.Host) error {
	const q = `
INSERT INTO xui_hosts (host_name, host_url, host_username, host_pass, host_inbound_id)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (host_name) DO UPDATE SET host_url=$2, host_username=$3, host_pass=$4, host_inbound_id=$5;`
	if _, err := execSQL(ctx, r.pool, tx, q, h.Name, h.URL, h.Username, h.Password, h.InboundID); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *hostRepo) Delete(ctx context.Context, tx repository.Tx, name string) error {
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM xui_hosts WHERE host_name=$1;`, name); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *hostRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.Host, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT host_name, host_url, host_username, host_pass, host_inbound_id FROM xui_hosts WHERE host_name=$1;`, name)
	if err != nil {
		return nil, err
	}
	h := &model.Host{}
	if err := row.Scan(&h.Name, &h.URL, &h.Username, &h.Password, &h.InboundID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return h, nil
}

func (r *hostRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Host, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT host_name, host_url, host_username, host_pass, host_inbound_id FROM xui_hosts ORDER BY host_name;`)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Host
	for rows.Next() {
		h := &model.Host{}
		if err := rows.Scan(&h.Name, &h.URL, &h.Username, &h.Password, &h.InboundID); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, h)
	}
	return out, nil
}

type planRepo struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *planRepo { return &planRepo{pool: pool} }

func (r *planRepo) Create(ctx context.Context, tx repository.Tx, p *model.Plan) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`INSERT INTO plans (host_name, plan_name, months, price) VALUES ($1,$2,$3,$4) RETURNING plan_id;`,
		p.HostName, p.Name, p.Months, p.Price)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, domain.ErrOperationFailed
	}
	return id, nil
}

func (r *planRepo) Delete(ctx context.Context, tx repository.Tx, id int64) error {
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM plans WHERE plan_id=$1;`, id); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT plan_id, host_name, plan_name, months, price FROM plans WHERE plan_id=$1;`, id)
	if err != nil {
		return nil, err
	}
	p := &model.Plan{}
	if err := row.Scan(&p.ID, &p.HostName, &p.Name, &p.Months, &p.Price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *planRepo) ListForHost(ctx context.Context, tx repository.Tx, hostName string) ([]*model.Plan, error) {
	// An empty host name lists every plan.
	rows, err := queryRows(ctx, r.pool, tx, `SELECT plan_id, host_name, plan_name, months, price FROM plans WHERE ($1 = '' OR host_name=$1) ORDER BY host_name, months;`, hostName)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Plan
	for rows.Next() {
		p := &model.Plan{}
		if err := rows.Scan(&p.ID, &p.HostName, &p.Name, &p.Months, &p.Price); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, nil
}
