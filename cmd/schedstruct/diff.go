package main

import (
	"github.com/spf13/cobra"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/changes"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

func newDiffCmd(a *app) *cobra.Command {
	var (
		outputPath string
		pretty     bool
		summary    bool
	)
	cmd := &cobra.Command{
		Use:   "diff [old.json] [new.json]",
		Short: "Compare two extraction results",
		Long: `Diff prints the added, removed and modified records between two
extraction results written by the extract command.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldRes, err := readResultFile(args[0])
			if err != nil {
				return err
			}
			newRes, err := readResultFile(args[1])
			if err != nil {
				return err
			}

			diff := changes.Diff(oldRes.Entries, newRes.Entries)
			if diff == nil {
				diff = []models.ScheduleChange{}
			}
			if summary {
				return writeJSON(cmd.OutOrStdout(), outputPath, changes.Summarize(diff), pretty)
			}
			return writeJSON(cmd.OutOrStdout(), outputPath, diff, pretty)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&outputPath, "output", "o", "", "output file path (default: stdout)")
	f.BoolVar(&pretty, "pretty", false, "pretty-print JSON output")
	f.BoolVar(&summary, "summary", false, "print counts by change type only")
	return cmd
}
