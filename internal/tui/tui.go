package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/eak1mov/go-vectiles/style"
)

// Run shows m until the user quits or ctx is done. When stylePath is set the
// sheet is reloaded on change and the tiles are rebuilt with it.
func Run(ctx context.Context, m Model, stylePath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	if stylePath != "" {
		go func() {
			err := style.Watch(ctx, stylePath, m.styles, func(err error) { p.Send(styleMsg{err: err}) })
			if err != nil {
				p.Send(styleMsg{err: err})
			}
		}()
	}
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
