package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/syssam/sqldao/compiler/daogen"
)

func newGenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen [packages]",
		Short: "Generate DescribeEntity methods for entity types",
		Long: `Generate a DescribeEntity method for every struct embedding schema.Table
in the given packages (default ./...). The registry then skips reading
struct tags at run time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"./..."}
			}
			paths, err := daogen.Generate(cmd.Context(), daogen.Config{
				Output:    a.cfg.Gen.Output,
				Workers:   a.cfg.Gen.Workers,
				Types:     a.cfg.Gen.Types,
				BuildTags: a.cfg.Gen.Tags,
			}, args...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(paths) == 0 {
				fmt.Fprintln(out, color.New(color.FgYellow).Sprint("no entity types found"))
				return nil
			}
			for _, p := range paths {
				fmt.Fprintf(out, "%s %s\n", color.New(color.FgGreen).Sprint("wrote"), p)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.String("output", "", "generated file name (default "+daogen.DefaultOutput+")")
	flags.Int("workers", 0, "parallel workers (default GOMAXPROCS)")
	flags.StringSlice("type", nil, "restrict generation to the named types")
	flags.StringSlice("tags", nil, "build tags used to load packages")
	for key, name := range map[string]string{"gen.output": "output", "gen.workers": "workers", "gen.types": "type", "gen.tags": "tags"} {
		cobra.CheckErr(a.v.BindPFlag(key, flags.Lookup(name)))
	}
	return cmd
}
