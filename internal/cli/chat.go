package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mwilhelmy/recall/internal/memory"
	"github.com/spf13/cobra"
)

var chatRecommend bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactively query the memory store",
	Long: `Start an interactive prompt. Each line of input is embedded and matched
against the store; results print as a ranked table. Enter 'x' to quit.

With --recommend, the chat model synthesizes a recommendation grounded in
the search results, and the conversation history carries across turns.

Examples:
  recall chat
  recall chat --recommend`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVarP(&chatRecommend, "recommend", "r", false, "synthesize a recommendation from the results")
}

// retriever is the part of session.Session the chat loop uses;
// substitutable with a stub in tests.
type retriever interface {
	Query(ctx context.Context, collection, text string, limit int, minRelevance float64) ([]memory.SearchResult, error)
	Recommend(ctx context.Context, collection, text string, limit int, minRelevance float64) (string, []memory.SearchResult, error)
}

func runChat(cmd *cobra.Command, args []string) error {
	sess, err := getSession(chatRecommend)
	if err != nil {
		return err
	}

	return chatLoop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), sess, chatOptions{
		collection:   cfg.CollectionName,
		limit:        cfg.SearchLimit,
		minRelevance: cfg.MinRelevance,
		recommend:    chatRecommend,
		width:        terminalWidth(),
	})
}

type chatOptions struct {
	collection   string
	limit        int
	minRelevance float64
	recommend    bool
	width        int
}

// chatLoop reads queries line by line until 'x' or EOF. Empty input
// re-prompts without touching the gateway; a failed query prints the error
// and the loop continues.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, sess retriever, opts chatOptions) error {
	theme := defaultTheme
	fmt.Fprintln(out, theme.statusStyle().Render("Ask for a recommendation, e.g. 'A movie about a hacker discovering reality is fake'."))
	fmt.Fprintln(out, theme.hintStyle().Render("Enter 'x' to quit."))
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Query: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "x") {
			fmt.Fprintln(out, theme.hintStyle().Render("Bye."))
			return nil
		}

		if err := answer(ctx, out, sess, input, opts); err != nil {
			fmt.Fprintln(out, theme.errorStyle().Render(fmt.Sprintf("Error: %v", err)))
		}
	}
}

// answer runs one retrieval turn and renders the outcome.
func answer(ctx context.Context, out io.Writer, sess retriever, input string, opts chatOptions) error {
	if opts.recommend {
		reply, results, err := sess.Recommend(ctx, opts.collection, input, opts.limit, opts.minRelevance)
		if err != nil {
			return err
		}
		fmt.Fprint(out, renderResultTable(results, opts.width))
		fmt.Fprintln(out, defaultTheme.completedStyle().Render("Recommendation:"))
		fmt.Fprintln(out, reply)
		fmt.Fprintln(out)
		return nil
	}

	results, err := sess.Query(ctx, opts.collection, input, opts.limit, opts.minRelevance)
	if err != nil {
		return err
	}
	fmt.Fprint(out, renderResultTable(results, opts.width))
	fmt.Fprintln(out)
	return nil
}
