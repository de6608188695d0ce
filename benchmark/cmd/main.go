// Command run executes the benchmark suite and reports what interception
// costs on top of a direct call.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/spf13/cobra"
)

type options struct {
	dir       string
	count     int
	benchtime string
	filter    string
	jsonPath  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "run",
		Short:         "Run the detour benchmarks and print a cost breakdown",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := runBenchmarks(opts)
			if err != nil {
				return err
			}
			results := parseResults(out)
			if len(results) == 0 {
				return errors.New("no benchmark results in go test output")
			}

			rep := newReport(results)
			rep.render(cmd.OutOrStdout())

			if opts.jsonPath != "" {
				if err := rep.writeJSON(opts.jsonPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "results written to %s\n", opts.jsonPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "..", "directory holding the benchmark package")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 3, "runs per benchmark, averaged in the report")
	cmd.Flags().StringVar(&opts.benchtime, "benchtime", "100ms", "go test -benchtime value")
	cmd.Flags().StringVar(&opts.filter, "bench", ".", "go test -bench pattern")
	cmd.Flags().StringVar(&opts.jsonPath, "json", "", "also write results and breakdown to this file")
	return cmd
}

func runBenchmarks(opts *options) ([]byte, error) {
	args := []string{
		"test", "-run=^$",
		"-bench=" + opts.filter,
		"-benchmem",
		"-count=" + strconv.Itoa(opts.count),
		"-benchtime=" + opts.benchtime,
	}
	c := exec.Command("go", args...)
	c.Dir = opts.dir
	var stderr bytes.Buffer
	c.Stderr = &stderr

	out, err := c.Output()
	if err != nil {
		return nil, fmt.Errorf("go test: %w\n%s", err, stderr.String())
	}
	return out, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
