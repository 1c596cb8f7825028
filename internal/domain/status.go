package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// JobStatus enumerates generation job lifecycle states.
type JobStatus string

const (
	JobStatusQueued      JobStatus = "QUEUED"
	JobStatusExtracting  JobStatus = "EXTRACTING"
	JobStatusPlanning    JobStatus = "PLANNING"
	JobStatusGenerating  JobStatus = "GENERATING"
	JobStatusCompositing JobStatus = "COMPOSITING"
	JobStatusTextOverlay JobStatus = "TEXT_OVERLAY"
	JobStatusAudio       JobStatus = "AUDIO"
	JobStatusRendering   JobStatus = "RENDERING"
	JobStatusCompleted   JobStatus = "COMPLETED"
	JobStatusFailed      JobStatus = "FAILED"
	JobStatusCancelled   JobStatus = "CANCELLED"
)

// pipelineOrder is the fixed forward sequence a job walks through.
var pipelineOrder = []JobStatus{
	JobStatusQueued,
	JobStatusExtracting,
	JobStatusPlanning,
	JobStatusGenerating,
	JobStatusCompositing,
	JobStatusTextOverlay,
	JobStatusAudio,
	JobStatusRendering,
	JobStatusCompleted,
}

var progressTable = map[JobStatus]int{
	JobStatusQueued:      0,
	JobStatusExtracting:  10,
	JobStatusPlanning:    15,
	JobStatusGenerating:  45,
	JobStatusCompositing: 60,
	JobStatusTextOverlay: 75,
	JobStatusAudio:       85,
	JobStatusRendering:   100,
	JobStatusCompleted:   100,
}

var stepLabels = map[JobStatus]string{
	JobStatusExtracting:  "Extracting Product",
	JobStatusPlanning:    "Planning Scenes",
	JobStatusGenerating:  "Generating Video Scenes",
	JobStatusCompositing: "Compositing Product",
	JobStatusTextOverlay: "Adding Text Overlays",
	JobStatusAudio:       "Generating Background Music",
	JobStatusRendering:   "Rendering Final Video",
}

var stepCosts = map[JobStatus]CostStep{
	JobStatusExtracting:  CostStepExtraction,
	JobStatusPlanning:    CostStepScenePlanning,
	JobStatusGenerating:  CostStepVideoGeneration,
	JobStatusCompositing: CostStepCompositing,
	JobStatusTextOverlay: CostStepTextOverlay,
	JobStatusAudio:       CostStepAudio,
	JobStatusRendering:   CostStepRendering,
}

var titleCaser = cases.Title(language.English)

// PipelineOrder returns a copy of the forward state sequence.
func PipelineOrder() []JobStatus {
	out := make([]JobStatus, len(pipelineOrder))
	copy(out, pipelineOrder)
	return out
}

// ParseJobStatus accepts any casing of a known status.
func ParseJobStatus(raw string) (JobStatus, error) {
	s := JobStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown job status %q", raw)
	}
	return s, nil
}

func (s JobStatus) Valid() bool {
	_, ok := progressTable[s]
	return ok || s == JobStatusFailed || s == JobStatusCancelled
}

// Terminal reports whether no further transition is possible.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Next returns the forward successor. Terminal states have none.
func (s JobStatus) Next() (JobStatus, bool) {
	for i, st := range pipelineOrder {
		if st == s && i+1 < len(pipelineOrder) {
			return pipelineOrder[i+1], true
		}
	}
	return "", false
}

// Progress is the fixed percentage checkpoint for s. FAILED and CANCELLED
// have no checkpoint of their own; the job keeps the last one it reached.
func (s JobStatus) Progress() (int, bool) {
	p, ok := progressTable[s]
	return p, ok
}

// Label is the human readable step name shown while polling.
func (s JobStatus) Label() string {
	if l, ok := stepLabels[s]; ok {
		return l
	}
	return titleCaser.String(strings.ToLower(strings.ReplaceAll(string(s), "_", " ")))
}

// CostStep is the ledger key charged when the step for s completes.
func (s JobStatus) CostStep() (CostStep, bool) {
	c, ok := stepCosts[s]
	return c, ok
}

// CanTransition allows strict next-step forward moves, plus FAILED and
// CANCELLED from any non-terminal state.
func CanTransition(from, to JobStatus) bool {
	if from.Terminal() || !from.Valid() {
		return false
	}
	if to == JobStatusFailed || to == JobStatusCancelled {
		return true
	}
	next, ok := from.Next()
	return ok && next == to
}
