package domain

import "time"

// Job is one end-to-end pipeline attempt for a project.
type Job struct {
	ID               string
	ProjectID        string
	UserID           string
	Status           JobStatus
	Progress         int
	CurrentStep      string
	Ledger           CostLedger
	AbandonedCostUSD float64
	ErrorKind        ErrorKind
	ErrorMessage     string
	ScenePlan        []byte
	Outputs          map[string]string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	StartedAt        *time.Time
	FinishedAt       *time.Time
}

// SpentUSD is everything the job paid providers, including scene spend
// that never reached the ledger because its step failed.
func (j Job) SpentUSD() float64 {
	return RoundUSD(j.Ledger.Total() + j.AbandonedCostUSD)
}
