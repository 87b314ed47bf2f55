package main

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/prodrag/internal/domain/catalog"
	ingestuc "github.com/kailas-cloud/prodrag/internal/usecase/ingest"
)

var (
	vocabProducts string
	vocabOut      string
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Precompute the filterable brands and categories",
	Long: `Writes the sorted unique brands and categories of products.json. The server
reads this file at startup to recognize brand and category filters.`,
	Args: cobra.NoArgs,
	RunE: runVocab,
}

func init() {
	vocabCmd.Flags().StringVar(&vocabProducts, "products", "", "products.json path (default from config)")
	vocabCmd.Flags().StringVarP(&vocabOut, "out", "o", "", "output path (default: retrieval.vocabulary_path)")
	rootCmd.AddCommand(vocabCmd)
}

func runVocab(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	products, err := ingestuc.LoadProducts(orDefault(vocabProducts, cfg.Ingest.ProductsPath))
	if err != nil {
		return err
	}

	v := catalog.BuildVocabulary(products)
	out := orDefault(vocabOut, cfg.Retrieval.VocabularyPath)
	if err := v.Save(out); err != nil {
		return err
	}
	success("Wrote %d brands and %d categories to %s", len(v.Brands), len(v.Categories), out)
	return nil
}
