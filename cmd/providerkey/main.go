package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"genads/internal/infra"
	"genads/internal/infra/credentials"
)

var envKeys = map[string]string{
	credentials.ProviderOpenAI:    "OPENAI_API_KEY",
	credentials.ProviderGemini:    "GEMINI_API_KEY",
	credentials.ProviderReplicate: "REPLICATE_API_TOKEN",
}

func main() {
	_ = godotenv.Load()

	var (
		keyFlag      string
		providerFlag string
		listFlag     bool
	)
	flag.StringVar(&keyFlag, "key", "", "API key for the selected provider (fallbacks to environment)")
	flag.StringVar(&providerFlag, "provider", credentials.ProviderReplicate, "provider to configure (openai, gemini or replicate)")
	flag.BoolVar(&listFlag, "list", false, "list providers with a stored key and exit")
	flag.Parse()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(fmt.Errorf("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := infra.NewDBPool(ctx, &infra.Config{DatabaseURL: dbURL}, infra.ProcessCLI)
	if err != nil {
		exitWithError(err)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "providerkey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	if listFlag {
		entries, err := store.List(ctx)
		if err != nil {
			exitWithError(fmt.Errorf("failed to list providers: %w", err))
		}
		if len(entries) == 0 {
			fmt.Println("no provider keys stored")
			return
		}
		for _, e := range entries {
			fmt.Printf("%-10s updated %s\n", e.Provider, e.UpdatedAt.UTC().Format(time.RFC3339))
		}
		return
	}

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	if !credentials.KnownProvider(provider) {
		exitWithError(fmt.Errorf("unsupported provider %q", providerFlag))
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(envKeys[provider]))
	}
	if key == "" {
		exitWithError(fmt.Errorf("%s API key is required via -key or %s", strings.ToUpper(provider), envKeys[provider]))
	}

	props := map[string]any{"stored_by": "providerkey", "stored_at": time.Now().UTC().Format(time.RFC3339)}
	if err := store.SetToken(ctx, provider, key, props); err != nil {
		exitWithError(fmt.Errorf("failed to persist %s api key: %w", provider, err))
	}

	fmt.Printf("%s API key stored successfully\n", strings.ToUpper(provider))
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
