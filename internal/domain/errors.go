package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidProject        = errors.New("invalid project")
	ErrJobInFlight           = errors.New("generation already in progress")
	ErrResetRequired         = errors.New("project must be reset before generating again")
	ErrNotCancellable        = errors.New("no cancellable job")
	ErrInvalidTransition     = errors.New("invalid job transition")
	ErrCancellationRequested = errors.New("cancellation requested")
)

// MaxErrorMessageLen bounds error text persisted on jobs and projects.
const MaxErrorMessageLen = 500

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	KindPlanning    ErrorKind = "planning"
	KindGeneration  ErrorKind = "generation"
	KindCompositing ErrorKind = "compositing"
	KindTextOverlay ErrorKind = "text_overlay"
	KindAudio       ErrorKind = "audio"
	KindRender      ErrorKind = "render"
	KindStorage     ErrorKind = "storage"
	KindTimeout     ErrorKind = "timeout"
	KindCancelled   ErrorKind = "cancelled"
	KindInternal    ErrorKind = "internal"
)

// PipelineError is a fatal step failure. For generation failures
// FailedScenes lists the failed scene indices (1-based) and
// CompletedScenes counts the scenes that produced a clip.
type PipelineError struct {
	Kind            ErrorKind
	Step            JobStatus
	FailedScenes    []int
	CompletedScenes int
	Err             error
}

func NewPipelineError(kind ErrorKind, step JobStatus, err error) *PipelineError {
	return &PipelineError{Kind: kind, Step: step, Err: err}
}

func (e *PipelineError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if len(e.FailedScenes) > 0 {
		fmt.Fprintf(&b, ": scenes %v failed (%d completed)", e.FailedScenes, e.CompletedScenes)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *PipelineError) Unwrap() error { return e.Err }

// KindOf classifies err. Deadline expiry wins over the step that happened
// to observe it.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrCancellationRequested):
		return KindCancelled
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// TruncateMessage cuts msg to at most max bytes on a rune boundary.
func TruncateMessage(msg string, max int) string {
	if len(msg) <= max {
		return msg
	}
	if max <= 0 {
		return ""
	}
	cut := max
	for i := 0; i < utf8.UTFMax-1 && cut > 0 && !utf8.RuneStart(msg[cut]); i++ {
		cut--
	}
	return msg[:cut]
}
