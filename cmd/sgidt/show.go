package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jhoicas/sgidt-documentos/internal/livesync"
	"github.com/jhoicas/sgidt-documentos/internal/tui"
)

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Muestra el detalle de un documento",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		doc, err := api.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		dv := livesync.BuildDetail(doc)
		fmt.Fprintln(cmd.OutOrStdout(), tui.RenderDetail(tui.DefaultStyles(), dv))
		return nil
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id inválido: %q", s)
	}
	return id, nil
}
