package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/gistify/internal/cli"
	"github.com/cloo-solutions/gistify/internal/config"
	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/logger"
	"github.com/cloo-solutions/gistify/internal/vectorstore"
)

// openBackend is swapped in tests.
var openBackend = defaultBackend

// defaultBackend resolves the API URL from --api-url, then GISTIFY_API_URL.
// With no URL the CLI runs the pipeline locally on DATA_DIR.
func defaultBackend(cmd *cobra.Command) (Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cli.NewLogger(cfg)

	apiURL, _ := cmd.Flags().GetString("api-url")
	if apiURL == "" {
		apiURL = cfg.APIURL
	}
	apiKey, _ := cmd.Flags().GetString("api-key")
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiURL != "" {
		return newRemoteBackend(NewAPIClient(apiURL, apiKey)), nil
	}

	store, err := vectorstore.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	embedder, generator, err := cli.NewModels(cfg)
	if err != nil {
		return nil, err
	}
	pc, err := cli.NewPipelineConfig(cfg)
	if err != nil {
		return nil, err
	}
	return newLocalBackend(store, embedder, generator, pc), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithContext(ctx, logger.Default())
}

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("output")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// IndexCmd creates the index command.
func IndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <file>",
		Short: "Extract, chunk and embed a document",
		Long:  "Indexes a PDF, Markdown or plain text file and prints its document id.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			res, err := b.Index(commandContext(cmd), args[0])
			if err != nil {
				return fmt.Errorf("failed to index %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, map[string]any{
					"id":           res.Document.ID,
					"source_name":  res.Document.SourceName,
					"content_type": res.Document.ContentType,
					"chunk_count":  res.Document.ChunkCount,
					"preview":      res.Preview,
				})
			}
			fmt.Fprintf(out, "Indexed %s as %s (%d chunks)\n", res.Document.SourceName, res.Document.ID, res.Document.ChunkCount)
			if res.Preview != "" {
				fmt.Fprintf(out, "\n%s\n", res.Preview)
			}
			return nil
		},
	}
}

// SummarizeCmd creates the summarize command.
func SummarizeCmd() *cobra.Command {
	var summaryType string

	cmd := &cobra.Command{
		Use:   "summarize <doc-id>",
		Short: "Summarize an indexed document",
		Long:  "Generates a summary with two advantages and two disadvantages.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := domain.ParseSummaryType(summaryType)
			if err != nil {
				return err
			}
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			rec, err := b.Summarize(commandContext(cmd), args[0], st)
			if err != nil {
				return fmt.Errorf("failed to summarize: %w", err)
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, map[string]any{
					"id":            rec.ID,
					"doc_id":        rec.DocID,
					"summary_type":  rec.SummaryType,
					"summary":       rec.SummaryText,
					"advantages":    rec.Advantages,
					"disadvantages": rec.Disadvantages,
				})
			}
			fmt.Fprintf(out, "%s\n\nAdvantages:\n", rec.SummaryText)
			for _, p := range rec.Advantages {
				fmt.Fprintf(out, "  - %s\n", p)
			}
			fmt.Fprintln(out, "\nDisadvantages:")
			for _, p := range rec.Disadvantages {
				fmt.Fprintf(out, "  - %s\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&summaryType, "type", "t", string(domain.SummaryDefault), "Summary type (concise|analytical|comprehensive|default)")
	cli.SetEnum(cmd, "type",
		string(domain.SummaryConcise),
		string(domain.SummaryAnalytical),
		string(domain.SummaryComprehensive),
		string(domain.SummaryDefault),
	)

	return cmd
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <doc-id> <question>",
		Short: "Ask a question about an indexed document",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args[1:], " "))
			if question == "" {
				return fmt.Errorf("question is required")
			}
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			ans, err := b.Ask(commandContext(cmd), args[0], question)
			if err != nil {
				return fmt.Errorf("failed to answer: %w", err)
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, map[string]any{
					"doc_id":   ans.DocID,
					"question": ans.Question,
					"answer":   ans.Text,
					"source":   ans.Source,
					"degraded": ans.Degraded,
				})
			}
			fmt.Fprintln(out, ans.Text)
			return nil
		},
	}
}

// DocsCmd creates the docs command.
func DocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "List indexed documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			docs, err := b.Documents(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("failed to list documents: %w", err)
			}

			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				items := make([]map[string]any, 0, len(docs))
				for _, d := range docs {
					items = append(items, map[string]any{
						"id":           d.ID,
						"source_name":  d.SourceName,
						"content_type": d.ContentType,
						"chunk_count":  d.ChunkCount,
						"created_at":   d.CreatedAt,
					})
				}
				return printJSON(out, items)
			}
			if len(docs) == 0 {
				fmt.Fprintln(out, "No documents indexed.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSOURCE\tTYPE\tCHUNKS\tCREATED")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.ID, d.SourceName, d.ContentType, d.ChunkCount, d.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <doc-id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd)
			if err != nil {
				return err
			}
			if err := b.Delete(commandContext(cmd), args[0]); err != nil {
				return fmt.Errorf("failed to delete: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// NewRootCmd assembles the gistify command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "gistify",
		Short: "Gistify CLI - summaries and answers grounded in one document",
		Long: `Gistify indexes a document and answers questions or writes summaries from it.

Without an API URL the pipeline runs locally on a chromem database under
GISTIFY_DATA_DIR.

Environment variables:
  GISTIFY_API_URL   gistifyd base URL (enables remote mode)
  GISTIFY_API_KEY   API key for the server
  GISTIFY_DATA_DIR  local store directory (default: .gistify)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().Bool("output", false, "Output as JSON")
	root.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	root.PersistentFlags().String("api-key", "", "API key for authentication (overrides env)")
	cli.BindEnv(root.PersistentFlags(), "api-url", "GISTIFY_API_URL")
	cli.BindEnv(root.PersistentFlags(), "api-key", "GISTIFY_API_KEY")
	cli.AddMode(root, "local", "runs the pipeline in-process on a chromem store under GISTIFY_DATA_DIR")
	cli.AddMode(root, "remote", "calls gistifyd at --api-url or GISTIFY_API_URL")
	cli.AddHelpJSONFlag(root)

	root.AddCommand(IndexCmd(), SummarizeCmd(), AskCmd(), DocsCmd(), DeleteCmd())
	return root
}
