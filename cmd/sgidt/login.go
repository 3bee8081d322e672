package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtiene un token y lo imprime como export SGIDT_TOKEN=…",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := loginPassword
		if password == "" {
			password = os.Getenv("SGIDT_PASSWORD")
		}
		if password == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Contraseña: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("contraseña requerida")
			}
			password = strings.TrimRight(line, "\r\n")
		}
		res, err := api.Login(cmd.Context(), loginEmail, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Sesión iniciada como %s (%s)\n", res.User.Email, res.User.Role)
		fmt.Fprintf(cmd.OutOrStdout(), "export SGIDT_TOKEN=%s\n", res.Token)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "email del usuario")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "contraseña (por defecto SGIDT_PASSWORD o se pide por stdin)")
	_ = loginCmd.MarkFlagRequired("email")
}
