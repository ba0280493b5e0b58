package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/ukaji3/schedstruct-go/internal/ingest"
	"github.com/ukaji3/schedstruct-go/internal/logging"
)

func newIngestCmd(a *app) *cobra.Command {
	var (
		objectKeys []string
		name       string
		pretty     bool
	)
	cmd := &cobra.Command{
		Use:   "ingest [input.xlsx...]",
		Short: "Store workbooks as snapshots and record their changes",
		Long: `Ingest extracts each workbook, stores it as a snapshot keyed by content
hash, records the changes against the previous snapshot of the same source
and publishes them when Kafka is enabled. Workbooks already stored are
skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sources []ingest.Source
			for _, path := range args {
				sources = append(sources, ingest.Source{Name: name, Path: path})
			}
			for _, key := range objectKeys {
				sources = append(sources, ingest.Source{Name: name, ObjectKey: key})
			}
			if len(sources) == 0 {
				return errors.New("nothing to ingest: pass workbook paths or --object keys")
			}

			svcs, err := a.buildServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svcs.Close()

			results := make([]*ingest.Result, 0, len(sources))
			var errs []error
			for _, src := range sources {
				res, err := svcs.ingest.Ingest(cmd.Context(), src)
				if err != nil {
					a.log.Error("ingest failed", logging.String("path", src.Path), logging.String("object", src.ObjectKey), logging.Err(err))
					errs = append(errs, err)
					continue
				}
				results = append(results, res)
			}
			if err := writeJSON(cmd.OutOrStdout(), "", results, pretty); err != nil {
				return err
			}
			return errors.Join(errs...)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&objectKeys, "object", nil, "object store keys to ingest")
	f.StringVar(&name, "name", "", "source name (default: file base name)")
	f.BoolVar(&pretty, "pretty", false, "pretty-print JSON output")
	return cmd
}
