package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/prodrag/internal/domain"
	chatuc "github.com/kailas-cloud/prodrag/internal/usecase/chat"
)

var askShowDocs bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant; without arguments starts an interactive session",
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowDocs, "docs", false, "print the documents the answer was grounded on")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Chat == nil {
		return errors.New("chat is disabled in this environment (chat.enabled)")
	}

	conv := uuid.NewString()
	var history []domain.Turn

	ask := func(msg string) error {
		sp := newSpinner("Thinking...")
		sp.Start()
		ans, err := a.Chat.Ask(ctx, chatuc.Request{ConversationID: conv, Message: msg, History: history})
		sp.Stop()
		if err != nil {
			return err
		}

		if ans.Blocked {
			warnColor.Println(ans.Text)
		} else {
			fmt.Println(ans.Text)
		}
		if askShowDocs {
			section("Documents")
			printItems(ans.Documents)
		}
		history = append(history, domain.Turn{User: msg, Assistant: ans.Text})
		return nil
	}

	if len(args) > 0 {
		return ask(strings.Join(args, " "))
	}

	dimColor.Println("Ask about our products. Empty line or Ctrl-D to quit.")
	sc := bufio.NewScanner(os.Stdin)
	for {
		headerColor.Print("> ")
		if !sc.Scan() {
			break
		}
		msg := strings.TrimSpace(sc.Text())
		if msg == "" {
			break
		}
		if err := ask(msg); err != nil {
			return err
		}
		fmt.Println()
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
