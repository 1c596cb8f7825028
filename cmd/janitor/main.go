package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"genads/internal/adapter/repo"
	"genads/internal/infra"
)

func main() {
	_ = godotenv.Load()

	var (
		timeoutFlag   time.Duration
		purgeDaysFlag int
		dryRunFlag    bool
	)
	flag.DurationVar(&timeoutFlag, "timeout", time.Hour, "fail jobs running longer than this")
	flag.IntVar(&purgeDaysFlag, "purge-days", 0, "delete FAILED projects idle for this many days (0 disables)")
	flag.BoolVar(&dryRunFlag, "dry-run", false, "report what would change without writing")
	flag.Parse()

	if timeoutFlag <= 0 {
		exitWithError(errors.New("-timeout must be positive"))
	}
	if purgeDaysFlag < 0 {
		exitWithError(errors.New("-purge-days must not be negative"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := infra.NewDBPool(ctx, &infra.Config{DatabaseURL: dbURL}, infra.ProcessCLI)
	if err != nil {
		exitWithError(err)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "janitor").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	j := &janitor{
		jobs:     repo.NewJobRepository(runner),
		projects: repo.NewProjectRepository(runner),
		now:      time.Now,
		out:      os.Stdout,
	}
	if dryRunFlag {
		fmt.Printf("dry run: would fail jobs started before %s\n", time.Now().Add(-timeoutFlag).UTC().Format(time.RFC3339))
		if purgeDaysFlag > 0 {
			fmt.Printf("dry run: would purge FAILED projects idle since %s\n", time.Now().AddDate(0, 0, -purgeDaysFlag).UTC().Format(time.RFC3339))
		}
		return
	}
	if err := j.run(ctx, timeoutFlag, purgeDaysFlag); err != nil {
		exitWithError(err)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// reapMessage is persisted on jobs the janitor fails.
func reapMessage(timeout time.Duration) string {
	return fmt.Sprintf("job exceeded its time limit: no progress within %s", timeout)
}
