package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/sgidt-documentos/internal/client"
	"github.com/jhoicas/sgidt-documentos/internal/livesync"
	"github.com/jhoicas/sgidt-documentos/internal/tui"
)

var (
	watchFilters filterFlags
	watchPlain   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tabla en vivo: recarga, polling de pendientes y acciones SII",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchPlain {
			return watchLog(cmd.Context())
		}
		return watchTUI(cmd.Context())
	},
}

func init() {
	watchFilters.register(watchCmd)
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "sin interfaz: escribe los cambios como líneas de texto")
}

func engineConfig() livesync.Config {
	return livesync.Config{PollInterval: cfg.PollInterval}
}

func watchTUI(ctx context.Context) error {
	bridge := tui.NewBridge()
	engine := livesync.New(api, bridge, bridge, engineConfig(), log)
	defer engine.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(tui.New(ctx, tui.EngineActions{Engine: engine}), tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(prog.Send)

	g, gctx := errgroup.WithContext(ctx)
	engine.InitFilter(watchFilters.state())
	g.Go(func() error {
		return engine.Start(gctx)
	})
	g.Go(func() error {
		defer cancel()
		_, err := prog.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	return ignoreStale(g.Wait())
}

// watchLog versión sin terminal interactiva: cada cambio es una línea.
func watchLog(ctx context.Context) error {
	view := &lineView{}
	engine := livesync.New(api, view, livesync.LogNotifier(log), engineConfig(), log)
	defer engine.Close()

	engine.InitFilter(watchFilters.state())
	if err := engine.Start(ctx); err != nil {
		return ignoreStale(err)
	}
	<-ctx.Done()
	return nil
}

func ignoreStale(err error) error {
	if errors.Is(err, livesync.ErrStale) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// lineView imprime cada render y parche.
type lineView struct{}

func (lineView) Loading() {}

func (lineView) Render(rows []client.Row, label string) {
	for _, r := range rows {
		fmt.Printf("%d\t%s\t%s\t%s\n", r.ID, r.Folio, r.Estado, tui.SIIBadge(r))
	}
	fmt.Println(label)
}

func (lineView) RenderError(msg string) { fmt.Println(msg) }

func (lineView) PatchRow(r client.Row, cells []string) {
	fmt.Printf("%d\t%s\t%s\t[%s]\n", r.ID, r.Folio, r.Estado, strings.Join(cells, ","))
}
