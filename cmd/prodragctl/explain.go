package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/prodrag/internal/config"
	"github.com/kailas-cloud/prodrag/internal/domain/catalog"
	"github.com/kailas-cloud/prodrag/internal/usecase/extract"
	"github.com/kailas-cloud/prodrag/internal/usecase/routing"
	searchuc "github.com/kailas-cloud/prodrag/internal/usecase/search"
)

var explainCmd = &cobra.Command{
	Use:   "explain <query>...",
	Short: "Show routing and filters for queries without touching the store",
	Long: `Prints the collections each query would be routed to and the metadata
predicate extracted from it. No embedding or store request is made.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExplain,
}

var explainEach bool

func init() {
	explainCmd.Flags().BoolVar(&explainEach, "each", false, "treat every argument as a separate query")
	rootCmd.AddCommand(explainCmd)
}

func runExplain(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lex, err := config.LoadLexicon(cfg.Retrieval.LexiconPath)
	if err != nil {
		return fmt.Errorf("load lexicon: %w", err)
	}
	vocab, err := catalog.LoadVocabulary(cfg.Retrieval.VocabularyPath)
	if err != nil {
		warn("vocabulary unavailable, brand and category filters disabled: %v", err)
	}

	// Explain needs neither a store nor an embedder.
	svc := searchuc.New(nil, nil, extract.New(lex, vocab), routing.New(lex.Routing), nil, nil)

	queries := []string{strings.Join(args, " ")}
	if explainEach {
		queries = args
	}
	for _, q := range queries {
		headerColor.Printf("\n%q\n", q)
		p := svc.Explain(q)
		fmt.Printf("  collections: %s\n", strings.Join(p.Collections.Strings(), ", "))
		if d := p.Predicate().Describe(); d != "" {
			fmt.Printf("  predicate:   %s\n", d)
		} else {
			dimColor.Println("  predicate:   (none)")
		}
	}
	return nil
}
