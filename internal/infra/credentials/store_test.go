package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecutor struct {
	token   string
	err     error
	queried bool
	rows    pgx.Rows
	exec    struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.queried = true
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.rows == nil {
		return nil, errors.New("not implemented")
	}
	return s.rows, nil
}

// entryRows serves provider/updated_at pairs; unused pgx.Rows methods panic.
type entryRows struct {
	pgx.Rows
	entries []Entry
	pos     int
}

func (r *entryRows) Next() bool {
	r.pos++
	return r.pos <= len(r.entries)
}

func (r *entryRows) Scan(dest ...any) error {
	e := r.entries[r.pos-1]
	*dest[0].(*string) = e.Provider
	*dest[1].(*time.Time) = e.UpdatedAt
	return nil
}

func (r *entryRows) Close()     {}
func (r *entryRows) Err() error { return nil }

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestToken(t *testing.T) {
	store := NewStore(&stubExecutor{token: " r8_abc "})
	key, err := store.Token(context.Background(), ProviderReplicate)
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "r8_abc" {
		t.Fatalf("expected r8_abc, got %q", key)
	}
}

func TestToken_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	key, err := store.Token(context.Background(), ProviderOpenAI)
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestResolvePrefersEnv(t *testing.T) {
	exec := &stubExecutor{token: "stored"}
	store := NewStore(exec)
	key, err := store.Resolve(context.Background(), ProviderGemini, " from-env ")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if key != "from-env" || exec.queried {
		t.Fatalf("expected env value without query, got %q queried=%v", key, exec.queried)
	}

	key, err = store.Resolve(context.Background(), ProviderGemini, "")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if key != "stored" {
		t.Fatalf("expected stored fallback, got %q", key)
	}
}

func TestSetToken(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetToken(context.Background(), " Replicate ", "secret", nil); err != nil {
		t.Fatalf("SetToken error: %v", err)
	}
	if len(exec.exec.args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[0].(string); !ok || v != ProviderReplicate {
		t.Fatalf("expected normalized provider, got %v", exec.exec.args[0])
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
}

func TestSetTokenRejects(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetToken(context.Background(), ProviderOpenAI, " ", nil); err == nil {
		t.Fatal("expected error for empty key")
	}
	if err := store.SetToken(context.Background(), "qwen", "k", nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestList(t *testing.T) {
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	want := []Entry{{Provider: ProviderOpenAI, UpdatedAt: at}, {Provider: ProviderReplicate, UpdatedAt: at.Add(time.Hour)}}
	store := NewStore(&stubExecutor{rows: &entryRows{entries: want}})

	got, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestListPropagatesQueryError(t *testing.T) {
	boom := errors.New("boom")
	store := NewStore(&stubExecutor{err: boom})
	if _, err := store.List(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected query error, got %v", err)
	}
}
