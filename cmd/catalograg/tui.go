package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"catalograg/internal/tui"
)

func tuiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive recommendation and search",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags)
			if err != nil {
				return err
			}
			defer a.close()
			engine, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			m := tui.New(engine, a.cfg.Retrieval.SearchK, engine.IndexSize())
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}
