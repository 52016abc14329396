package main

import (
	"github.com/nulzo/model-catalog/internal/adapters/source"
	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/internal/core/ports"
	"github.com/nulzo/model-catalog/pkg/schema"
	"github.com/spf13/cobra"
)

func newExportCmd(e *env) *cobra.Command {
	var out, passphrase string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog as a backup document",
		Long:  "Write the catalog as a backup document to --out, or to stdout when no file is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sink ports.DocumentSink = source.Writer{W: e.out}
			if out != "" {
				sink = source.FileSink{Path: out}
			}

			var res schema.ExportResult
			if passphrase != "" {
				res = e.app.Exporter.EncryptTo(cmd.Context(), sink, passphrase)
			} else {
				res = e.app.Exporter.ExportTo(cmd.Context(), sink)
			}

			if !res.Success {
				e.fail("%s", res.Message)
				return errReported
			}
			e.ok("%s", res.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Destination file")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Encrypt the backup with this passphrase")
	return cmd
}

func newImportCmd(e *env) *cobra.Command {
	var file, mode, passphrase string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Apply a backup document to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := source.File{Path: file}
			m := schema.ImportMode(mode)

			var res schema.ImportResult
			if passphrase != "" {
				res = e.app.Importer.ImportEncrypted(cmd.Context(), src, m, passphrase)
			} else {
				res = e.app.Importer.Import(cmd.Context(), src, m)
			}

			for _, w := range res.Warnings {
				e.warn("%s", w)
			}

			switch {
			case domain.IsCancelled(res):
				e.warn("%s", res.Message)
				return nil
			case !res.Success:
				e.fail("%s", res.Message)
				return errReported
			}
			e.ok("%s", res.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Backup document to import")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(schema.ImportModeMerge), "Import mode: merge or replace")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Passphrase of an encrypted backup")
	return cmd
}

func newClearCmd(e *env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every provider and model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				e.fail("refusing to clear the catalog without --yes")
				return errReported
			}
			if err := e.app.Catalog.ClearAll(cmd.Context()); err != nil {
				e.fail("%v", err)
				return errReported
			}
			e.ok("Catalog cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}
