package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/syssam/sqldao/querystore"
)

func newQueriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Work with named query files",
	}
	cmd.AddCommand(newQueriesCheckCmd(a))
	return cmd
}

func newQueriesCheckCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Load a query directory and list its templates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Queries
			if len(args) > 0 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no query directory given")
			}
			s, err := querystore.Open(dir, querystore.WithLogger(a.log))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			names := s.Names()
			for _, name := range names {
				fmt.Fprintf(out, "  %s\n", name)
			}
			fmt.Fprintf(out, "%s %d queries in %s\n", color.New(color.FgGreen).Sprint("ok"), len(names), dir)
			if !watch {
				return nil
			}
			return s.Watch(cmd.Context(), func(err error) {
				if err != nil {
					fmt.Fprintf(out, "%s %v\n", color.New(color.FgRed).Sprint("error"), err)
					return
				}
				fmt.Fprintf(out, "%s %d queries\n", color.New(color.FgGreen).Sprint("reloaded"), len(s.Names()))
			})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and report reloads")
	return cmd
}
