package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	searchuc "github.com/kailas-cloud/prodrag/internal/usecase/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Retrieve documents for a question without generating an answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Search.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	printPlan(resp.Plan)
	for _, coll := range resp.Collections {
		section(coll.String())
		printItems(resp.Results[coll])
	}
	return nil
}

func printPlan(p searchuc.Plan) {
	section("Query plan")
	headerColor.Print("collections: ")
	fmt.Println(strings.Join(p.Collections.Strings(), ", "))
	headerColor.Print("predicate:   ")
	if d := p.Predicate().Describe(); d != "" {
		fmt.Println(d)
	} else {
		dimColor.Println("(none)")
	}
}
