package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	names := make([]string, 0, len(scenarios))
	for _, s := range scenarios {
		names = append(names, s.name)
	}

	return &cobra.Command{
		Use:       "run [scenario...]",
		Short:     "Run demo scenarios (all by default)",
		Long:      "Run demo scenarios. Available: " + strings.Join(names, ", ") + ".",
		ValidArgs: names,
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = names
			}

			out := cmd.OutOrStdout()
			if err := a.rt.Apply(demoModule(a.logger, out)); err != nil {
				return err
			}

			for _, name := range args {
				s, _ := findScenario(name)
				_, _ = fmt.Fprintf(out, "%s: %s\n", s.name, s.short)
				if err := s.run(a.rt, out); err != nil {
					return fmt.Errorf("scenario %s: %w", s.name, err)
				}
			}
			return nil
		},
	}
}
