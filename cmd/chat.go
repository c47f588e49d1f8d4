package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var resumeSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session with conversation memory",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&resumeSessionID, "session", "", "resume an existing session by ID")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx := cmd.Context()

	var sessionID uuid.UUID
	if resumeSessionID != "" {
		sessionID, err = uuid.Parse(resumeSessionID)
		if err != nil {
			return fmt.Errorf("invalid session ID %q: %w", resumeSessionID, err)
		}
		if _, err := a.Sessions.GetSession(ctx, sessionID); err != nil {
			return fmt.Errorf("resuming session: %w", err)
		}
		cmd.Printf("Resumed session %s\n", sessionID)
	} else {
		sess, err := a.Sessions.CreateSession(ctx, "")
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		sessionID = sess.ID
		cmd.Printf("Started session %s\n", sessionID)
	}
	cmd.Println(`Type your question, or "exit" to quit.`)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("reading input: %w", err)
			}
			cmd.Println()
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		answer, err := a.Engine.AskInSession(ctx, sessionID, line)
		if err != nil {
			cmd.PrintErrf("error: %v\n", err)
			continue
		}
		printAnswer(cmd, answer)
	}
}
