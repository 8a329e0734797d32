package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/domain/document"
	searchuc "github.com/docdex/docdex/internal/usecase/search"
)

var (
	flagLimit     int
	flagThreshold float64
	flagTypes     []string
	flagTags      []string
	flagRerank    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a one-shot query against a built index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&flagLimit, "limit", searchuc.DefaultLimit, "maximum number of results")
	searchCmd.Flags().Float64Var(&flagThreshold, "threshold", searchuc.DefaultThreshold, "minimum blended score, 0 to 1")
	searchCmd.Flags().StringSliceVar(&flagTypes, "type", nil, "restrict to document types (endpoint, entity, service, type, page, custom)")
	searchCmd.Flags().StringSliceVar(&flagTags, "tag", nil, "keep only documents carrying at least one of these tags")
	searchCmd.Flags().BoolVar(&flagRerank, "rerank", false, "reorder the top results with the configured rerank model")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	index, err := loadIndexFile(flagIndex)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	store := openCacheStore(ctx, cfg, logger)
	if store != nil {
		defer store.Close()
	}

	svc := searchuc.New(logger)
	if embedder := buildEmbedder(cfg, store, logger); embedder != nil {
		svc = svc.WithEmbedder(embedder)
	}
	if flagRerank && cfg.Rerank.Enabled() {
		svc = svc.WithReranker(newReranker(cfg, logger))
	}
	svc.SetIndex(index)

	types := make([]document.Type, 0, len(flagTypes))
	for _, t := range flagTypes {
		types = append(types, document.Type(t))
	}

	query := strings.Join(args, " ")
	results, err := svc.Search(ctx, query, searchuc.Options{
		Limit:     flagLimit,
		Threshold: flagThreshold,
		Types:     types,
		Tags:      flagTags,
		AIRerank:  flagRerank,
	})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no results")
		return nil
	}

	out := cmd.OutOrStdout()
	for i, res := range results {
		doc := res.Document
		fmt.Fprintf(out, "%2d. [%.4f] %s (%s) %s\n", i+1, res.Score, doc.Title(), doc.Type(), doc.ID())
		for _, h := range res.Highlights {
			fmt.Fprintf(out, "      %s: %s\n", h.Field, h.Snippet)
		}
	}
	return nil
}
