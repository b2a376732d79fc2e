package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/zaryo/zaryo-backend/internal/repository"
)

type Repositories struct {
	Users          repo.Users
	Accounts       repo.Accounts
	Ledger         repo.Ledger
	Products       repo.Products
	PurchaseOrders repo.PurchaseOrders
	Redemptions    repo.Redemptions
	AuditLogs      repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:          &usersRepo{pool},
		Accounts:       &accountsRepo{pool},
		Ledger:         &ledgerRepo{pool},
		Products:       &productsRepo{pool},
		PurchaseOrders: &ordersRepo{pool},
		Redemptions:    &redemptionsRepo{pool},
		AuditLogs:      &auditLogsRepo{pool},
	}
}
