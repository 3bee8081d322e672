// Command sgidt cliente de terminal de la API de documentos: listado en vivo,
// carga de archivos, acciones SII y chat de ayuda.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jhoicas/sgidt-documentos/internal/client"
	"github.com/jhoicas/sgidt-documentos/pkg/config"
	"github.com/jhoicas/sgidt-documentos/pkg/logger"
)

var (
	// Flags globales
	baseURL  string
	token    string
	logLevel string

	cfg *config.ClientConfig
	log zerolog.Logger
	api *client.Client
)

var rootCmd = &cobra.Command{
	Use:           "sgidt",
	Short:         "Cliente de terminal para documentos tributarios",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadClient()
		if err != nil {
			return err
		}
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		if token != "" {
			cfg.Token = token
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}

		// Logs a stderr para no mezclarlos con la salida del comando.
		log = logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel, Out: os.Stderr}).Component("sgidt")

		api, err = client.New(cfg.BaseURL, cfg.Token, client.WithLogger(log))
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "URL de la API (por defecto SGIDT_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "token JWT (por defecto SGIDT_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "nivel de log: debug, info, warn, error")

	rootCmd.AddCommand(loginCmd, listCmd, watchCmd, uploadCmd, showCmd, siiCmd, chatCmd, rutCmd, summaryCmd, reportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
