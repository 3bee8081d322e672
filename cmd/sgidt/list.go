package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/jhoicas/sgidt-documentos/internal/client"
	"github.com/jhoicas/sgidt-documentos/internal/livesync"
	"github.com/jhoicas/sgidt-documentos/internal/tui"
	"github.com/jhoicas/sgidt-documentos/pkg/clfmt"
)

var listFilters filterFlags

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lista los documentos de la empresa",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := api.List(cmd.Context(), listFilters.state())
		if err != nil {
			return err
		}
		printRows(cmd.OutOrStdout(), rows)
		return nil
	},
}

func init() {
	listFilters.register(listCmd)
}

func printRows(w io.Writer, rows []client.Row) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Fecha", "Tipo", "Folio", "RUT", "Razón social", "Total", "Estado", "SII")
	for _, r := range rows {
		total := clfmt.Placeholder
		if r.Total.Valid {
			total = clfmt.Money(&r.Total.Decimal)
		}
		t.Row(
			strconv.FormatInt(r.ID, 10),
			clfmt.OrDash(r.FechaEmision),
			clfmt.OrDash(r.TipoDocumento),
			clfmt.OrDash(r.Folio),
			clfmt.OrDash(r.RutProveedor),
			clfmt.OrDash(r.RazonSocialProveedor),
			total,
			tui.EstadoBadge(r.Estado),
			tui.SIIBadge(r),
		)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, livesync.ResultLabel(len(rows)))
}
