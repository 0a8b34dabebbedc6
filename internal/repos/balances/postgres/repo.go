package balances

import (
	"database/sql"

	"github.com/fastprodman/wagerengine/internal/repos/balances"
)

var _ balances.Balances = (*balancesRepo)(nil)

type balancesRepo struct{ db *sql.DB }

func New(db *sql.DB) *balancesRepo {
	return &balancesRepo{db: db}
}

const balanceColumns = `user_id, available, escrowed, version, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (balances.Balance, error) {
	var b balances.Balance
	err := row.Scan(&b.UserID, &b.Available, &b.Escrowed, &b.Version, &b.UpdatedAt)
	return b, err
}
