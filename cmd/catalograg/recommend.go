package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func recommendCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <query>",
		Short: "Recommend assessments for a hiring query",
		Args:  cobra.MinimumNArgs(1),
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
			text, err := engine.Recommend(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
