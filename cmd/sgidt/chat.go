package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [PREGUNTA]",
	Short: "Chat de ayuda; sin argumentos abre una sesión interactiva",
	RunE: func(cmd *cobra.Command, args []string) error {
		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(args) > 0 {
			return ask(cmd.Context(), out, renderer, strings.Join(args, " "))
		}

		sc := bufio.NewScanner(cmd.InOrStdin())
		fmt.Fprint(out, "> ")
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "salir" || line == "exit" {
				return nil
			}
			if line != "" {
				if err := ask(cmd.Context(), out, renderer, line); err != nil {
					fmt.Fprintln(out, err)
				}
			}
			fmt.Fprint(out, "> ")
		}
		return sc.Err()
	},
}

func ask(ctx context.Context, out io.Writer, r *glamour.TermRenderer, msg string) error {
	resp, err := api.Chat(ctx, msg)
	if err != nil {
		return err
	}
	rendered, err := r.Render(resp.Reply)
	if err != nil {
		rendered = resp.Reply + "\n"
	}
	fmt.Fprint(out, rendered)
	if len(resp.Suggest) > 0 {
		fmt.Fprintf(out, "Sugerencias: %s\n", strings.Join(resp.Suggest, " · "))
	}
	return nil
}
