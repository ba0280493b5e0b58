package main

import (
	"github.com/spf13/cobra"
	"github.com/ukaji3/schedstruct-go/internal/logging"
)

func newRegistryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Import or export the entity registry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import [registry.json]",
		Short: "Replace the stored registry with a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := readRegistryFile(args[0])
			if err != nil {
				return err
			}
			st, err := a.openStore(ctx, true)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.SaveRegistry(ctx, reg); err != nil {
				return err
			}
			if err := a.invalidateRegistryCache(ctx); err != nil {
				a.log.Warn("registry cache not invalidated", logging.Err(err))
			}
			a.log.Info("registry imported",
				logging.Int("instructors", len(reg.Instructors)),
				logging.Int("subjects", len(reg.Subjects)),
				logging.Int("relations", len(reg.Relations)),
			)
			return nil
		},
	})

	var pretty bool
	export := &cobra.Command{
		Use:   "export",
		Short: "Print the stored registry as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer st.Close()
			reg, err := st.LoadRegistry(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), "", reg, pretty)
		},
	}
	export.Flags().BoolVar(&pretty, "pretty", false, "pretty-print JSON output")
	cmd.AddCommand(export)
	return cmd
}
