package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jhoicas/sgidt-documentos/pkg/clfmt"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Resumen por estado, tipo y estado SII",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := api.Summary(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d documentos por %s\n", s.MesLabel, s.CantidadMes, clfmt.Money(&s.TotalMes))
		fmt.Fprintf(out, "Pendientes: %d\n", s.Pendientes)
		for _, g := range []struct {
			title string
			m     map[string]int
		}{{"Por estado", s.PorEstado}, {"Por tipo", s.PorTipo}, {"Por estado SII", s.PorSIIEstado}} {
			fmt.Fprintf(out, "\n%s\n", g.title)
			keys := make([]string, 0, len(g.m))
			for k := range g.m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "  %-20s %d\n", k, g.m[k])
			}
		}
		return nil
	},
}

var (
	reportFilters filterFlags
	reportOut     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Descarga el reporte PDF del listado filtrado",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pdf, err := api.Report(cmd.Context(), reportFilters.state())
		if err != nil {
			return err
		}
		if err := os.WriteFile(reportOut, pdf, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reporte guardado en %s (%d bytes)\n", reportOut, len(pdf))
		return nil
	},
}

func init() {
	reportFilters.register(reportCmd)
	reportCmd.Flags().StringVarP(&reportOut, "output", "o", "reporte.pdf", "archivo de salida")
}
