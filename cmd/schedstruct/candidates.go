package main

import (
	"github.com/spf13/cobra"
	"github.com/ukaji3/schedstruct-go/internal/store"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/candidates"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/resolver"
)

func newCandidatesCmd(a *app) *cobra.Command {
	var (
		registryPath string
		outputPath   string
		pretty       bool
	)
	cmd := &cobra.Command{
		Use:   "candidates [result.json...]",
		Short: "List unregistered instructors, subjects and relations",
		Long: `Candidates compares extracted mentions against the registry. Entries come
from the given extraction results, or from the latest snapshot of every
source in the database. Dismissed candidates are read from the database
whenever it is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var st *store.Store
			if registryPath == "" || len(args) == 0 {
				s, err := a.openStore(ctx, true)
				if err != nil {
					return err
				}
				defer s.Close()
				st = s
			}

			var entries []models.ScheduleEntry
			for _, path := range args {
				res, err := readResultFile(path)
				if err != nil {
					return err
				}
				entries = append(entries, res.Entries...)
			}
			if len(args) == 0 {
				all, err := st.AllEntries(ctx)
				if err != nil {
					return err
				}
				entries = all
			}

			var reg *models.Registry
			var err error
			if registryPath != "" {
				reg, err = readRegistryFile(registryPath)
			} else {
				reg, err = st.LoadRegistry(ctx)
			}
			if err != nil {
				return err
			}

			ignored := candidates.NewIgnored(nil, nil, nil)
			if st != nil {
				if ignored, err = st.IgnoredCandidates(ctx); err != nil {
					return err
				}
			}

			report := candidates.Detect(entries, resolver.NewIndex(reg), ignored, a.cfg.CandidateOptions())
			return writeJSON(cmd.OutOrStdout(), outputPath, report, pretty)
		},
	}

	f := cmd.Flags()
	f.StringVar(&registryPath, "registry", "", "registry JSON file (default: database)")
	f.StringVarP(&outputPath, "output", "o", "", "output file path (default: stdout)")
	f.BoolVar(&pretty, "pretty", false, "pretty-print JSON output")

	cmd.AddCommand(&cobra.Command{
		Use:   "ignore [instructor|subject|relation] [key]",
		Short: "Dismiss a candidate so it is no longer reported",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer st.Close()
			return st.IgnoreCandidate(cmd.Context(), args[0], args[1])
		},
	})
	return cmd
}
