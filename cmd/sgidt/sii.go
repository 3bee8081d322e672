package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/sgidt-documentos/internal/livesync"
)

var siiFollow bool

var siiCmd = &cobra.Command{
	Use:   "sii",
	Short: "Acciones SII sobre un documento",
}

var siiValidarCmd = &cobra.Command{
	Use:   "validar ID",
	Short: "Envía el documento al SII y obtiene el Track ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		actions := livesync.NewSIIActions(api, printNotifier(cmd), nil, log)
		if !siiFollow {
			res, err := api.ValidarSII(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "TrackID: %s\n", res.TrackID)
			return nil
		}
		_, err = actions.Validate(cmd.Context(), id)
		return err
	},
}

var siiEstadoCmd = &cobra.Command{
	Use:   "estado ID",
	Short: "Consulta el estado SII del documento",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		_, err = livesync.NewSIIActions(api, printNotifier(cmd), nil, log).Refresh(cmd.Context(), id, false)
		return err
	},
}

func init() {
	siiValidarCmd.Flags().BoolVarP(&siiFollow, "follow", "f", false, "consulta el estado tres veces después de validar")
	siiCmd.AddCommand(siiValidarCmd, siiEstadoCmd)
}

func printNotifier(cmd *cobra.Command) livesync.Notifier {
	return livesync.NotifierFunc(func(n livesync.Notification) {
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", n.Level, n.Message)
	})
}
