package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"skh-agent/internal/domain"
)

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the site assistant; /exit or EOF ends the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildAssistant(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			greeting := svc.Greeting()
			fmt.Fprintf(out, "%s\n> ", greeting.Text)

			// The greeting is display-only and never enters history.
			var history []domain.ChatMessage
			in := bufio.NewScanner(cmd.InOrStdin())
			for in.Scan() {
				line := strings.TrimSpace(in.Text())
				if line == "/exit" || line == "/quit" {
					break
				}
				if line == "" {
					fmt.Fprint(out, "> ")
					continue
				}

				ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
				reply, err := svc.Chat(ctx, line, history)
				cancel()
				if err != nil {
					fmt.Fprintf(out, "error: %v\n> ", err)
					continue
				}
				history = append(history,
					domain.ChatMessage{Role: domain.RoleUser, Text: line},
					domain.ChatMessage{Role: domain.RoleModel, Text: reply},
				)
				fmt.Fprintf(out, "%s\n> ", reply)
			}
			fmt.Fprintln(out)
			return in.Err()
		},
	}
}
