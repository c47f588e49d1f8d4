package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quorra0/sage/internal/rag"
)

var showSources bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question against the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&showSources, "sources", false, "print cited source passages after the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	question := strings.Join(args, " ")
	answer, err := a.Engine.Ask(cmd.Context(), question)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	printAnswer(cmd, answer)
	return nil
}

func printAnswer(cmd *cobra.Command, answer *rag.Answer) {
	cmd.Println(answer.Text)

	if showSources && len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, c := range answer.Citations {
			cmd.Printf("  [%d] %s: %s\n", c.Index, c.DocumentID, c.Snippet)
		}
	}
	cmd.Printf("\n(confidence: %.2f, retrieved: %d)\n", answer.Confidence, len(answer.Retrieved))
}
