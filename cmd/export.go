package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/gridfeed/gridfeed/internal/session"
	"github.com/gridfeed/gridfeed/internal/view"
)

var (
	exportOut      string
	exportCategory string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch records and export the resolved view to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := newFeedEnv(cfg)
		if err != nil {
			return err
		}

		req := sessionRequest(cfg)
		if req.SourceURL == "" {
			return eris.New("export: no source configured, set source.url or notion.database_id")
		}

		env.mgr.Trigger(ctx, req)
		snap, err := env.mgr.Wait(ctx)
		if err != nil {
			return err
		}
		if snap.Status == session.StatusError {
			return eris.New(snap.ErrMessage)
		}

		records := view.FilterByCategory(snap.Records, cfg.Fields.Category, exportCategory)
		cards := view.ResolveAll(records, cfg.Fields)

		if err := writeWorkbook(exportOut, cards); err != nil {
			return err
		}

		zap.L().Info("exported records",
			zap.Int("count", len(cards)),
			zap.String("path", exportOut),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "records.xlsx", "output workbook path")
	exportCmd.Flags().StringVar(&exportCategory, "category", view.AllCategories, "filter records by category (case-insensitive)")
	rootCmd.AddCommand(exportCmd)
}

// writeWorkbook writes resolved records to a single-sheet XLSX workbook.
func writeWorkbook(path string, cards []view.Card) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Records")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, name := range []string{"Date", "Start Time", "Title", "Category", "Location", "Description", "Signup URL", "Image URL"} {
		header.AddCell().SetString(name)
	}

	for _, c := range cards {
		row := sheet.AddRow()
		for _, v := range []string{c.Date, c.StartTime, c.Title, c.Category, c.Location, c.Description, c.SignupURL, c.ImageURL} {
			row.AddCell().SetString(v)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	return nil
}
