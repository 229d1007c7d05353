package processors

import (
	"github.com/username/insiderfolio/backend/src/models"
)

// RollupBuilder turns one filing's classified transaction rows into the final
// ordered sequence of ROLLUP, SOURCE and SYNTHETIC rows.
type RollupBuilder interface {
	BuildRollups(txs []*models.Transaction) []*models.Transaction
}
