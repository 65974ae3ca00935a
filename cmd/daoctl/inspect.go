package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/syssam/sqldao/dialect/sql"
	"github.com/syssam/sqldao/schema"
)

func newInspectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <table>",
		Short: "Show dialect capabilities and the primary key of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			drv, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer drv.Close()
			d, err := sql.DialectFor(drv.Dialect())
			if err != nil {
				return err
			}
			keys, err := drv.PrimaryKeys(ctx, a.cfg.Schema, args[0])
			if err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}
			printInspect(cmd.OutOrStdout(), d, args[0], keys)
			a.log.DebugContext(ctx, "inspect done", "stats", drv.QueryStats().Stats().String())
			return nil
		},
	}
	cmd.Flags().String("schema", "", "schema of the table")
	cobra.CheckErr(a.v.BindPFlag("schema", cmd.Flags().Lookup("schema")))
	return cmd
}

func printInspect(w io.Writer, d sql.Dialect, table string, keys []string) {
	label := color.New(color.FgCyan).SprintFunc()
	yesNo := func(b bool) string {
		if b {
			return color.New(color.FgGreen).Sprint("yes")
		}
		return color.New(color.FgYellow).Sprint("no")
	}
	fmt.Fprintf(w, "%s %s\n", label("dialect: "), d.Name())
	fmt.Fprintf(w, "%s %s\n", label("identity:"), yesNo(d.SupportsIdentity()))
	fmt.Fprintf(w, "%s %s\n", label("sequence:"), yesNo(d.SupportsSequence()))
	auto, err := schema.ResolveStrategy(schema.StrategyAuto, d)
	if err != nil {
		fmt.Fprintf(w, "%s %s\n", label("auto:    "), color.New(color.FgRed).Sprint(err))
	} else {
		fmt.Fprintf(w, "%s %s\n", label("auto:    "), auto)
	}
	if len(keys) == 0 {
		fmt.Fprintf(w, "%s %s\n", label(table+":"), color.New(color.FgYellow).Sprint("no primary key"))
		return
	}
	fmt.Fprintf(w, "%s primary key (%s)\n", label(table+":"), strings.Join(keys, ", "))
}
