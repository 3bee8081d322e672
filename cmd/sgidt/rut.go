package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/sgidt-documentos/pkg/rut"
)

var rutCmd = &cobra.Command{
	Use:   "rut RUT",
	Short: "Valida un RUT y consulta el contribuyente en el SII",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := rut.Validate(args[0]); err != nil {
			return err
		}
		c, err := api.Contribuyente(cmd.Context(), rut.Format(args[0]))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "RUT:          %s\n", c.Rut)
		fmt.Fprintf(out, "Razón social: %s\n", c.RazonSocial)
		fmt.Fprintf(out, "Actividad:    %s\n", c.ActividadPrincipal)
		fmt.Fprintf(out, "Estado:       %s\n", c.Estado)
		if c.Cache {
			fmt.Fprintln(out, "(desde cache)")
		}
		return nil
	},
}
