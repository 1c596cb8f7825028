package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// CostStep names a billable pipeline step in the ledger.
type CostStep string

const (
	CostStepExtraction      CostStep = "extraction"
	CostStepScenePlanning   CostStep = "scene_planning"
	CostStepVideoGeneration CostStep = "video_generation"
	CostStepCompositing     CostStep = "compositing"
	CostStepTextOverlay     CostStep = "text_overlay"
	CostStepAudio           CostStep = "audio"
	CostStepRendering       CostStep = "rendering"
)

var (
	ErrLedgerDuplicateStep = errors.New("ledger: step already recorded")
	ErrLedgerNegative      = errors.New("ledger: negative amount")
)

// CostEntry is one ledger record.
type CostEntry struct {
	Step       CostStep  `json:"step"`
	AmountUSD  float64   `json:"amount_usd"`
	RecordedAt time.Time `json:"recorded_at"`
}

// CostLedger is the append-only per-step cost record of a job. Each step
// appears at most once and entries are never edited.
type CostLedger struct {
	entries []CostEntry
}

// NewCostLedger rebuilds a ledger from stored entries, enforcing the same
// rules as Append.
func NewCostLedger(entries []CostEntry) (CostLedger, error) {
	var l CostLedger
	for _, e := range entries {
		if err := l.Append(e); err != nil {
			return CostLedger{}, err
		}
	}
	return l, nil
}

func (l *CostLedger) Append(e CostEntry) error {
	if e.AmountUSD < 0 || math.IsNaN(e.AmountUSD) {
		return fmt.Errorf("%w: %s %v", ErrLedgerNegative, e.Step, e.AmountUSD)
	}
	if l.Has(e.Step) {
		return fmt.Errorf("%w: %s", ErrLedgerDuplicateStep, e.Step)
	}
	l.entries = append(l.entries, e)
	return nil
}

func (l CostLedger) Has(step CostStep) bool {
	for _, e := range l.entries {
		if e.Step == step {
			return true
		}
	}
	return false
}

// Entries returns a copy in recording order.
func (l CostLedger) Entries() []CostEntry {
	out := make([]CostEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l CostLedger) Steps() []CostStep {
	out := make([]CostStep, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.Step)
	}
	return out
}

func (l CostLedger) Len() int { return len(l.entries) }

// Total sums the ledger, rounded to hundredths of a cent.
func (l CostLedger) Total() float64 {
	var sum float64
	for _, e := range l.entries {
		sum += e.AmountUSD
	}
	return RoundUSD(sum)
}

func (l CostLedger) MarshalJSON() ([]byte, error) {
	if l.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.entries)
}

func (l *CostLedger) UnmarshalJSON(data []byte) error {
	var entries []CostEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	rebuilt, err := NewCostLedger(entries)
	if err != nil {
		return err
	}
	*l = rebuilt
	return nil
}

// RoundUSD trims float noise from summed costs.
func RoundUSD(v float64) float64 {
	return math.Round(v*10000) / 10000
}
