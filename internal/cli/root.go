// Package cli provides the command-line interface for recall.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mwilhelmy/recall/internal/config"
	"github.com/mwilhelmy/recall/internal/llm"
	"github.com/mwilhelmy/recall/internal/memory"
	"github.com/mwilhelmy/recall/internal/session"
	"github.com/mwilhelmy/recall/internal/store/atlas"
	"github.com/mwilhelmy/recall/internal/store/surreal"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, logger and store, wired in PersistentPreRunE
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	store      memory.Store

	// Lazy-initialized LLM components
	embedder llm.Embedder
	model    *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Semantic search and recommendations over a vector memory",
	Long: `Recall stores text records with their embeddings and finds the closest
matches for a free-text query, ranked by relevance.

Ingest reference links or the sample movie catalog, then search one-shot
or chat interactively. The store backend is pluggable: an in-process
brute-force store for demos, MongoDB Atlas Vector Search or SurrealDB
for persistence.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logCleanup = config.SetupLogger(cfg.LogFile, level)

		store, err = openStore(cmd.Context())
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			if err := store.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// openStore constructs the configured store backend.
func openStore(ctx context.Context) (memory.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.NewMemoryStore(), nil
	case config.StoreAtlas:
		return atlas.Connect(ctx, cfg.StoreURI, cfg.DatabaseName, cfg.IndexName, logger)
	case config.StoreSurreal:
		return surreal.Connect(ctx, surreal.Config{
			URL:       cfg.StoreURI,
			Namespace: cfg.SurrealNamespace,
			Database:  cfg.DatabaseName,
			Username:  cfg.SurrealUser,
			Password:  cfg.SurrealPass,
			Dimension: cfg.EmbedDimension,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unknown store provider %q", memory.ErrConfig, cfg.Store)
	}
}

// getEmbedder lazily initializes the embedding gateway.
func getEmbedder() (llm.Embedder, error) {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg)
		if err != nil {
			return nil, fmt.Errorf("init embedder: %w", err)
		}
	}
	return embedder, nil
}

// getSession creates a retrieval session. Commands that synthesize chat
// replies pass requireChat=true; everything else skips the chat gateway.
func getSession(requireChat bool) (*session.Session, error) {
	emb, err := getEmbedder()
	if err != nil {
		return nil, err
	}

	var chat session.ChatModel
	if requireChat {
		if model == nil {
			model, err = llm.NewModel(cfg)
			if err != nil {
				return nil, fmt.Errorf("init model: %w", err)
			}
		}
		chat = model
	}

	return session.New(emb, store, chat, cfg.RequestTimeout, cfg.HistoryLimit, logger), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(deleteCmd)
}
