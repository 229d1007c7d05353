package services

import (
	"errors"

	"github.com/username/insiderfolio/backend/src/models"
)

var (
	ErrValidation       = errors.New("invalid filing payload")
	ErrProcessingFailed = errors.New("filing processing failed")
)

// RollupService ingests parsed filings, runs the linking engine and serves
// the processed rows back.
type RollupService interface {
	ProcessFiling(env models.FilingEnvelope) (*models.IngestResult, error)
	GetProcessedTransactions(ownerCik string) ([]models.Transaction, error)
	GetRollups(ownerCik string) ([]models.Transaction, error)
	InvalidateOwnerCache(ownerCik string)
}

// AlertService notifies operators when a filing reconciles badly.
type AlertService interface {
	SendMismatchAlert(accession string, rollups []*models.Transaction) error
}
