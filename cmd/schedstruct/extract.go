package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ukaji3/schedstruct-go/internal/logging"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		registryPath string
		outputPath   string
		pretty       bool
		mode         string
		sheetsDir    string
	)
	cmd := &cobra.Command{
		Use:   "extract [input.xlsx]",
		Short: "Extract schedule entries from a workbook",
		Long: `Extract reads one timetable workbook and prints its entries, section
layout, parse statistics and debug records as JSON. The registry comes from
--registry, or from the database when omitted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := a.cfg.ExtractOptions()
			if mode != "" {
				m, ok := schedstruct.ParseMode(mode)
				if !ok {
					return fmt.Errorf("invalid mode: %s (must be light, standard, or verbose)", mode)
				}
				opts.Mode = m
			}

			var reg *models.Registry
			if registryPath != "" {
				r, err := readRegistryFile(registryPath)
				if err != nil {
					return err
				}
				reg = r
			} else {
				st, err := a.openStore(ctx, true)
				if err != nil {
					return err
				}
				defer st.Close()
				if reg, err = st.LoadRegistry(ctx); err != nil {
					return err
				}
			}

			result, err := schedstruct.ExtractFile(args[0], reg, opts)
			if err != nil {
				return fmt.Errorf("extraction failed: %w", err)
			}
			a.log.Info("workbook extracted",
				logging.String("book", result.BookName),
				logging.Int("entries", len(result.Entries)),
				logging.Int("error_cells", result.Stats.ErrorCells),
				logging.Duration("elapsed", result.Stats.ProcessingTime),
			)

			if sheetsDir != "" {
				if err := writeSheetFiles(result, sheetsDir, pretty); err != nil {
					return fmt.Errorf("failed to write sheet files: %w", err)
				}
				if outputPath == "" {
					return nil
				}
			}
			return writeJSON(cmd.OutOrStdout(), outputPath, result, pretty)
		},
	}

	f := cmd.Flags()
	f.StringVar(&registryPath, "registry", "", "registry JSON file (default: database)")
	f.StringVarP(&outputPath, "output", "o", "", "output file path (default: stdout)")
	f.BoolVar(&pretty, "pretty", false, "pretty-print JSON output")
	f.StringVar(&mode, "mode", "", "debug mode: light, standard, verbose (default: extract.mode)")
	f.StringVar(&sheetsDir, "sheets-dir", "", "directory for per-sheet entry files")
	return cmd
}

// writeSheetFiles writes the entries of each sheet to <dir>/<sheet>.json.
func writeSheetFiles(result *models.ExtractionResult, dir string, pretty bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	bySheet := make(map[string][]models.ScheduleEntry)
	for sheet := range result.Sections {
		bySheet[sheet] = []models.ScheduleEntry{}
	}
	for _, e := range result.Entries {
		bySheet[e.Sheet] = append(bySheet[e.Sheet], e)
	}
	for sheet, entries := range bySheet {
		if err := writeJSON(nil, filepath.Join(dir, sheet+".json"), entries, pretty); err != nil {
			return err
		}
	}
	return nil
}
