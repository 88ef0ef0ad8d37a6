package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mwilhelmy/recall/internal/ingest"
	"github.com/mwilhelmy/recall/internal/memory"
	"github.com/mwilhelmy/recall/internal/movies"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/term"
)

var (
	ingestCollection string
	ingestLimit      int
	ingestSourceURI  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed and store source records",
}

var ingestRefsCmd = &cobra.Command{
	Use:   "refs",
	Short: "Ingest the demo set of reference links",
	Long: `Embed a small built-in set of documentation links and store them. Handy
for trying out search without any external data source.`,
	Args: cobra.NoArgs,
	RunE: runIngestRefs,
}

var ingestMoviesCmd = &cobra.Command{
	Use:   "movies",
	Short: "Ingest movies from the sample_mflix dataset",
	Long: `Read movie documents from the MongoDB sample_mflix dataset, embed each
plot and store the records. Movies without a title are skipped; a missing
plot is replaced with a placeholder so the record still embeds.

Examples:
  recall ingest movies --limit 500
  recall ingest movies --source-uri "mongodb+srv://..." --limit 1000`,
	Args: cobra.NoArgs,
	RunE: runIngestMovies,
}

func init() {
	ingestCmd.PersistentFlags().StringVarP(&ingestCollection, "collection", "c", "", "target collection (default from config)")
	ingestMoviesCmd.Flags().IntVarP(&ingestLimit, "limit", "n", 200, "max movies to ingest")
	ingestMoviesCmd.Flags().StringVar(&ingestSourceURI, "source-uri", "", "MongoDB URI holding sample_mflix (default: store URI)")

	ingestCmd.AddCommand(ingestRefsCmd)
	ingestCmd.AddCommand(ingestMoviesCmd)
}

// demoReferences is the built-in reference set for the refs subcommand.
var demoReferences = []ingest.Reference{
	{
		URL:         "https://github.com/microsoft/semantic-kernel/blob/main/README.md",
		Description: "README: Installation, getting started, and how to contribute",
	},
	{
		URL:         "https://github.com/microsoft/semantic-kernel/blob/main/dotnet/notebooks/02-running-prompts-from-file.ipynb",
		Description: "Jupyter notebook describing how to pass prompts from a file to a semantic plugin or function",
	},
	{
		URL:         "https://github.com/microsoft/semantic-kernel/blob/main/dotnet/notebooks/00-getting-started.ipynb",
		Description: "Jupyter notebook describing how to get started with the Semantic Kernel",
	},
	{
		URL:         "https://github.com/microsoft/semantic-kernel/tree/main/samples/plugins/ChatPlugin/ChatGPT",
		Description: "Sample demonstrating how to create a chat plugin interfacing with ChatGPT",
	},
	{
		URL:         "https://github.com/microsoft/semantic-kernel/blob/main/dotnet/src/Plugins/Plugins.Memory/VolatileMemoryStore.cs",
		Description: "C# class that defines a volatile embedding store",
	},
}

func targetCollection() string {
	if ingestCollection != "" {
		return ingestCollection
	}
	return cfg.CollectionName
}

func runIngestRefs(cmd *cobra.Command, args []string) error {
	records, skipped := ingest.ReferenceRecords(targetCollection(), demoReferences)
	return runBatch(cmd, records, skipped)
}

func runIngestMovies(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	docs, err := fetchMovies(ctx)
	if err != nil {
		return err
	}

	records, skipped := ingest.MovieRecords(targetCollection(), docs)
	return runBatch(cmd, records, skipped)
}

// fetchMovies reads source documents from sample_mflix. When the store
// itself is Atlas its client is reused; otherwise --source-uri names the
// cluster holding the sample dataset.
func fetchMovies(ctx context.Context) ([]movies.Movie, error) {
	var client *mongo.Client

	if as, ok := store.(interface{ Client() *mongo.Client }); ok && ingestSourceURI == "" {
		client = as.Client()
	} else {
		uri := ingestSourceURI
		if uri == "" {
			uri = cfg.StoreURI
		}
		if uri == "" {
			return nil, fmt.Errorf("%w: no MongoDB URI for sample_mflix; set --source-uri", memory.ErrConfig)
		}
		var err error
		client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return nil, fmt.Errorf("%w: connect to source: %v", memory.ErrStore, err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
	}

	return movies.Fetch(ctx, client.Database(movies.SampleDatabase), ingestLimit)
}

// runBatch embeds and stores the normalized records, with a progress bar
// when attached to a terminal.
func runBatch(cmd *cobra.Command, records []memory.Record, skipped int) error {
	emb, err := getEmbedder()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if skipped > 0 {
		fmt.Fprintln(out, defaultTheme.hintStyle().Render(
			fmt.Sprintf("%d source records without a usable id were skipped", skipped)))
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "Nothing to ingest.")
		return nil
	}

	ing := ingest.New(emb, store, cfg.RequestTimeout, logger)

	if term.IsTerminal(int(os.Stdout.Fd())) {
		// The progress UI renders the final result itself.
		_, err := runIngestProgress(cmd.Context(), ing, records)
		return err
	}

	res, err := ing.Run(cmd.Context(), records)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Stored %d records (%d skipped, %d failed).\n",
		res.Stored, res.Skipped+skipped, res.Failed)
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  • %s\n", e)
	}
	return nil
}
