package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/janekbaraniewski/powerusage/internal/config"
	"github.com/janekbaraniewski/powerusage/internal/tui"
)

func runDashboard(a *app) error {
	if err := tui.LoadThemes(config.ConfigDir()); err != nil {
		a.logger.Warn().Err(err).Msg("some theme files were skipped")
	}
	tui.SetThemeByName(a.cfg.Theme)

	tr, err := a.openTracker()
	if err != nil {
		return err
	}
	defer tr.Close()

	model := tui.NewModel(tr, a.cfg.UI.WarnThreshold, a.cfg.UI.CritThreshold)
	model.SetOnThemeChange(func(name string) error {
		return config.SaveThemeTo(a.configPath, name)
	})

	program := tea.NewProgram(model, tea.WithAltScreen())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			program.Send(tui.SaveAndQuitMsg{})
		}
	}()

	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return finalSaveError(final, tr.Path())
}

// finalSaveError surfaces a save that failed while the program was exiting.
func finalSaveError(final tea.Model, path string) error {
	m, ok := final.(tui.Model)
	if !ok {
		return nil
	}
	if err := m.SaveErr(); err != nil {
		return fmt.Errorf("usage data was not saved to %s: %w", path, err)
	}
	return nil
}
