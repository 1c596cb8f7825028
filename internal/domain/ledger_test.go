package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestLedgerAppendRejectsDuplicatesAndNegatives(t *testing.T) {
	var l CostLedger
	now := time.Now()
	if err := l.Append(CostEntry{Step: CostStepExtraction, AmountUSD: 0, RecordedAt: now}); err != nil {
		t.Fatalf("append extraction: %v", err)
	}
	if err := l.Append(CostEntry{Step: CostStepScenePlanning, AmountUSD: 0.01, RecordedAt: now}); err != nil {
		t.Fatalf("append planning: %v", err)
	}
	if err := l.Append(CostEntry{Step: CostStepScenePlanning, AmountUSD: 0.01}); !errors.Is(err, ErrLedgerDuplicateStep) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := l.Append(CostEntry{Step: CostStepAudio, AmountUSD: -0.1}); !errors.Is(err, ErrLedgerNegative) {
		t.Fatalf("expected negative error, got %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
	if got := l.Steps(); got[0] != CostStepExtraction || got[1] != CostStepScenePlanning {
		t.Fatalf("Steps = %v", got)
	}
}

func TestLedgerTotalRounds(t *testing.T) {
	var l CostLedger
	_ = l.Append(CostEntry{Step: CostStepScenePlanning, AmountUSD: 0.01})
	_ = l.Append(CostEntry{Step: CostStepVideoGeneration, AmountUSD: 0.08 * 3})
	_ = l.Append(CostEntry{Step: CostStepAudio, AmountUSD: 0.1})
	if got := l.Total(); got != 0.35 {
		t.Fatalf("Total = %v, want 0.35", got)
	}
}

func TestLedgerEntriesIsCopy(t *testing.T) {
	var l CostLedger
	_ = l.Append(CostEntry{Step: CostStepAudio, AmountUSD: 0.1})
	entries := l.Entries()
	entries[0].AmountUSD = 99
	if l.Total() != 0.1 {
		t.Fatal("mutating Entries() changed the ledger")
	}
}

func TestLedgerJSON(t *testing.T) {
	var empty CostLedger
	raw, err := json.Marshal(empty)
	if err != nil || string(raw) != "[]" {
		t.Fatalf("empty ledger json = %s, %v", raw, err)
	}

	var l CostLedger
	_ = l.Append(CostEntry{Step: CostStepExtraction, AmountUSD: 0})
	_ = l.Append(CostEntry{Step: CostStepScenePlanning, AmountUSD: 0.01})
	raw, err = json.Marshal(l)
	if err != nil {
		t.Fatal(err)
	}
	var back CostLedger
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Len() != 2 || back.Total() != 0.01 {
		t.Fatalf("round trip lost entries: %+v", back.Entries())
	}

	dup := []byte(`[{"step":"audio","amount_usd":0.1},{"step":"audio","amount_usd":0.1}]`)
	if err := json.Unmarshal(dup, &back); !errors.Is(err, ErrLedgerDuplicateStep) {
		t.Fatalf("expected duplicate error on decode, got %v", err)
	}
}
