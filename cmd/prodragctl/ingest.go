package main

import (
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/prodrag/internal/domain/collection"
	ingestuc "github.com/kailas-cloud/prodrag/internal/usecase/ingest"
)

var (
	ingestProducts string
	ingestReviews  string
	ingestNoVocab  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Rebuild the products and reviews collections from the catalog files",
	Long: `Drops both collections, embeds every product spec sheet and review and loads
them again. The filterable vocabulary is written alongside unless --no-vocab is set.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestProducts, "products", "", "products.json path (default from config)")
	ingestCmd.Flags().StringVar(&ingestReviews, "reviews", "", "product_reviews.json path (default from config)")
	ingestCmd.Flags().BoolVar(&ingestNoVocab, "no-vocab", false, "skip writing the filterable vocabulary")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	products := orDefault(ingestProducts, a.Config.Ingest.ProductsPath)
	reviews := orDefault(ingestReviews, a.Config.Ingest.ReviewsPath)

	section("Catalog ingestion")
	cat, err := ingestuc.LoadCatalog(products, reviews)
	if err != nil {
		return err
	}
	success("Loaded %d products and %d review groups", len(cat.Products), len(cat.Reviews))

	if !ingestNoVocab {
		path := a.Config.Retrieval.VocabularyPath
		v := cat.Vocabulary()
		if err := v.Save(path); err != nil {
			return err
		}
		success("Wrote %d brands and %d categories to %s", len(v.Brands), len(v.Categories), path)
	}

	bars := map[collection.Name]*progressbar.ProgressBar{}
	report, err := a.Ingest.WithProgress(func(name collection.Name, done, total int) {
		bar, ok := bars[name]
		if !ok {
			bar = newProgressBar(total, name.String())
			bars[name] = bar
		}
		_ = bar.Set(done)
	}).Run(ctx, cat)

	for i, c := range report.Collections {
		if c.Skipped > 0 {
			warn("%s: skipped %d catalog entries (run with -v for details)", c.Name, c.Skipped)
		}
		// Run stops at the first failing collection, which is always the last reported.
		if err != nil && i == len(report.Collections)-1 {
			warn("%s: failed after %d of %d records written", c.Name, c.Written, c.Records)
			continue
		}
		success("%s: %d records written, %d in collection", c.Name, c.Written, c.Count)
	}
	if err != nil {
		return err
	}
	dimColor.Printf("run %s, %d embedding tokens\n", report.RunID, report.TotalTokens)
	return nil
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
