package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-vpn-shop/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Totals(ctx context.Context) (users int, transactions int, hosts int, revenue float64, err error)
}

type statsUC struct {
	users        repository.UserRepository
	transactions repository.TransactionRepository
	hosts        repository.HostRepository

	log *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, transactions repository.TransactionRepository, hosts repository.HostRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{users: users, transactions: transactions, hosts: hosts, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (int, int, int, float64, error) {
	users, err := s.users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	txs, err := s.transactions.CountAll(ctx, repository.NoTX)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	hosts, err := s.hosts.ListAll(ctx, repository.NoTX)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	revenue, err := s.transactions.SumPaid(ctx, repository.NoTX)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return users, txs, len(hosts), revenue, nil
}
