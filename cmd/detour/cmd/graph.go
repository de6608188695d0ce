package cmd

import (
	"github.com/spf13/cobra"
)

func newGraphCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the demo pipelines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if err := a.rt.Apply(demoModule(a.logger, out)); err != nil {
				return err
			}
			if err := a.rt.Validate(); err != nil {
				return err
			}

			dot, _ := cmd.Flags().GetBool("dot")
			if dot {
				a.rt.FprintPipelinesDOT(out)
			} else {
				a.rt.FprintPipelines(out)
			}
			return nil
		},
	}
	cmd.Flags().Bool("dot", false, "print Graphviz DOT instead of text")
	return cmd
}
