package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"contentengine/internal/engine"
	"contentengine/internal/trends"
)

type rootOptions struct {
	catalogPath string
	verbose     bool
}

type draftOptions struct {
	text     string
	file     string
	platform string
	tone     string
	goal     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "contentctl",
		Short:         "Score, rewrite and forecast social media drafts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.catalogPath, "catalog", "c", "", "Path to a YAML rule catalog (embedded default when empty)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log degraded trend lookups to stderr")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newScoreCmd(opts),
		newVariantsCmd(opts),
		newPredictCmd(opts),
		newCatalogCmd(opts),
		newTrendsCmd(),
	)
	return root
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelError
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (o *rootOptions) engine(cmd *cobra.Command, extra ...engine.Option) (*engine.Engine, error) {
	catalog, err := o.catalog()
	if err != nil {
		return nil, err
	}
	opts := append([]engine.Option{engine.WithLogger(o.logger(cmd))}, extra...)
	return engine.New(catalog, opts...)
}

func (o *rootOptions) catalog() (engine.Catalog, error) {
	if o.catalogPath == "" {
		return engine.DefaultCatalog()
	}
	return engine.LoadCatalog(o.catalogPath)
}

func bindDraftFlags(cmd *cobra.Command, d *draftOptions) {
	cmd.Flags().StringVarP(&d.text, "text", "t", "", "Draft text")
	cmd.Flags().StringVarP(&d.file, "file", "f", "", "Read the draft text from a file (- for stdin)")
	cmd.Flags().StringVarP(&d.platform, "platform", "p", "", "Target platform")
	cmd.Flags().StringVar(&d.tone, "tone", "", "Voice of the draft (default casual)")
	cmd.Flags().StringVar(&d.goal, "goal", "", "Goal of the post (default engagement)")
	_ = cmd.MarkFlagRequired("platform")
	cmd.MarkFlagsMutuallyExclusive("text", "file")
}

func (d *draftOptions) draft(cmd *cobra.Command) (engine.Draft, error) {
	text := d.text
	if d.file != "" {
		var (
			raw []byte
			err error
		)
		if d.file == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = os.ReadFile(d.file)
		}
		if err != nil {
			return engine.Draft{}, fmt.Errorf("read draft: %w", err)
		}
		text = string(raw)
	}
	return engine.Draft{
		Text:     text,
		Platform: engine.Platform(d.platform),
		Tone:     engine.Tone(d.tone),
		Goal:     engine.Goal(d.goal),
	}, nil
}

// parseVariantTypes turns a comma separated list into variant types.
// "all" selects every style and "none" selects no style.
func parseVariantTypes(value string) []engine.VariantType {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "all":
		return nil
	case "none":
		return []engine.VariantType{}
	}
	var types []engine.VariantType
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			types = append(types, engine.VariantType(strings.ToLower(part)))
		}
	}
	return types
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	var (
		d             draftOptions
		types         string
		snapshot      string
		dbPath        string
		noPredictions bool
		maxTrends     int
		timeout       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run scoring, variants, predictions and trend suggestions for a draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := d.draft(cmd)
			if err != nil {
				return err
			}

			var extra []engine.Option
			provider, closeFn, err := trendProvider(snapshot, dbPath)
			if err != nil {
				return err
			}
			defer closeFn()
			if provider != nil {
				extra = append(extra, engine.WithTrendProvider(provider), engine.WithTrendTimeout(timeout))
			}

			e, err := root.engine(cmd, extra...)
			if err != nil {
				return err
			}

			opts := engine.DefaultOptions()
			opts.VariantTypes = parseVariantTypes(types)
			opts.PredictVariants = !noPredictions
			opts.IncludeTrends = provider != nil
			opts.MaxTrendSuggestions = maxTrends

			result, err := e.Run(cmd.Context(), draft, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	bindDraftFlags(cmd, &d)
	cmd.Flags().StringVar(&types, "types", "all", "Comma separated variant styles, all or none")
	cmd.Flags().StringVar(&snapshot, "trends", "", "Trend snapshot JSON file")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite trend store")
	cmd.Flags().BoolVar(&noPredictions, "no-variant-predictions", false, "Only forecast the original draft")
	cmd.Flags().IntVar(&maxTrends, "max-trends", engine.DefaultMaxTrendSuggestions, "Maximum trend suggestions")
	cmd.Flags().DurationVar(&timeout, "trend-timeout", engine.DefaultTrendTimeout, "Deadline for the trend lookup")
	return cmd
}

func newScoreCmd(root *rootOptions) *cobra.Command {
	var d draftOptions
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rate a draft and list the suggestions that fired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := d.draft(cmd)
			if err != nil {
				return err
			}
			e, err := root.engine(cmd)
			if err != nil {
				return err
			}
			score, err := e.Score(draft)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), score)
		},
	}
	bindDraftFlags(cmd, &d)
	return cmd
}

func newVariantsCmd(root *rootOptions) *cobra.Command {
	var (
		d     draftOptions
		types string
	)
	cmd := &cobra.Command{
		Use:   "variants",
		Short: "Rewrite a draft into styled variants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := d.draft(cmd)
			if err != nil {
				return err
			}
			e, err := root.engine(cmd)
			if err != nil {
				return err
			}
			selected := parseVariantTypes(types)
			if selected == nil {
				selected = engine.VariantTypes
			}
			variants, err := e.GenerateVariants(draft, selected)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), variants)
		},
	}
	bindDraftFlags(cmd, &d)
	cmd.Flags().StringVar(&types, "types", "all", "Comma separated variant styles, all or none")
	return cmd
}

func newPredictCmd(root *rootOptions) *cobra.Command {
	var d draftOptions
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Forecast reach and engagement for a draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := d.draft(cmd)
			if err != nil {
				return err
			}
			e, err := root.engine(cmd)
			if err != nil {
				return err
			}
			prediction, err := e.Predict(draft)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), prediction)
		},
	}
	bindDraftFlags(cmd, &d)
	return cmd
}

func newCatalogCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect rule catalogs",
	}

	validateCmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Check a catalog file for defects",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.catalogPath
			if len(args) > 0 {
				path = args[0]
			}
			var (
				catalog engine.Catalog
				err     error
			)
			if path == "" {
				catalog, err = engine.DefaultCatalog()
				path = "embedded catalog"
			} else {
				catalog, err = engine.LoadCatalog(path)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d rules)\n", path, len(catalog.Rules))
			return nil
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the active catalog as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := root.catalog()
			if err != nil {
				return err
			}
			out, err := engine.EncodeCatalog(catalog)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.AddCommand(validateCmd, dumpCmd)
	return cmd
}

func newTrendsCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Manage the SQLite trend store",
	}
	cmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "trends.db", "Path to the SQLite trend store")

	importCmd := &cobra.Command{
		Use:   "import <snapshot.json>",
		Short: "Load a trend snapshot into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signals, err := trends.LoadSignals(args[0])
			if err != nil {
				return err
			}
			store, err := trends.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Import(cmd.Context(), signals)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d signals into %s\n", n, dbPath)
			return nil
		},
	}

	var olderThan time.Duration
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete signals observed before a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := trends.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d signals\n", n)
			return nil
		},
	}
	pruneCmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Age above which signals are removed")

	cmd.AddCommand(importCmd, pruneCmd)
	return cmd
}

// trendProvider combines the optional snapshot and store into one provider.
// It returns a nil provider when neither is configured.
func trendProvider(snapshot, dbPath string) (trends.Provider, func(), error) {
	var providers []trends.Provider
	closeFn := func() {}
	if snapshot != "" {
		p, err := trends.NewStaticFileProvider("snapshot", snapshot)
		if err != nil {
			return nil, closeFn, err
		}
		providers = append(providers, p)
	}
	if dbPath != "" {
		store, err := trends.NewSQLiteStore(dbPath)
		if err != nil {
			return nil, closeFn, err
		}
		closeFn = func() { _ = store.Close() }
		providers = append(providers, store)
	}
	if len(providers) == 0 {
		return nil, closeFn, nil
	}
	registry, err := trends.NewRegistry(providers...)
	if err != nil {
		closeFn()
		return nil, func() {}, err
	}
	return registry, closeFn, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
