package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/spf13/cobra"

	"github.com/jhoicas/sgidt-documentos/internal/client"
	"github.com/jhoicas/sgidt-documentos/internal/livesync"
)

var uploadCmd = &cobra.Command{
	Use:   "upload ARCHIVO...",
	Short: "Sube PDF o imágenes (máximo 10 MB cada uno)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := make([]client.UploadFile, 0, len(args))
		for _, p := range args {
			f, err := client.FileFromPath(p)
			if err != nil {
				return err
			}
			files = append(files, f)
		}

		bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
		var mu sync.Mutex
		report := func(sent, total int64) {
			if total <= 0 {
				return
			}
			mu.Lock()
			fmt.Fprintf(os.Stderr, "\r%s", bar.ViewAs(float64(sent)/float64(total)))
			mu.Unlock()
		}

		notify := livesync.NotifierFunc(func(n livesync.Notification) {
			if n.Persist {
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n[%s] %s\n", n.Level, n.Message)
		})
		sum := livesync.NewUploadQueue(api, notify, nil, log).Submit(cmd.Context(), files, report)
		if sum.Level == livesync.LevelError {
			return fmt.Errorf("%s", sum.Message)
		}
		return nil
	},
}
