package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func searchCmd(flags *globalFlags) *cobra.Command {
	var (
		k      int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "List the most relevant assessments with their details",
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
			matches, err := engine.Search(cmd.Context(), strings.Join(args, " "), k)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(matches)
			}
			for _, m := range matches {
				d := m.Details
				fmt.Fprintf(out, "%d. %s  (score %.3f)\n", m.Rank, d.Title, m.Score)
				fmt.Fprintf(out, "   %s\n", d.URL)
				fmt.Fprintf(out, "   duration: %s | type: %s | remote: %s | adaptive: %s\n", d.Duration, d.TestType, d.Remote, d.Adaptive)
				fmt.Fprintf(out, "   %s\n\n", d.Description)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&k, "k", 0, "Number of results (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
