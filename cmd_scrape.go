package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mars-scraper/db"
	"mars-scraper/logger"
	"mars-scraper/models"
	"mars-scraper/sheets"
)

var (
	scrapeJSON  bool
	scrapeSave  bool
	scrapeSheet bool
)

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeJSON, "json", false, "Print the report as JSON")
	scrapeCmd.Flags().BoolVar(&scrapeSave, "save", false, "Store the report in Postgres")
	scrapeCmd.Flags().BoolVar(&scrapeSheet, "sheet", false, "Export the report to a new Google Sheets tab")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--json] [--save] [--sheet]",
	Short: "Runs every task once and prints the report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		s, err := newScraper(cfg)
		if err != nil {
			return err
		}

		report, err := s.Run(ctx)
		if err != nil {
			return fmt.Errorf("scrape failed: %w", err)
		}

		if scrapeSave {
			database, err := db.NewDB(cfg.Database.URL)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.SaveReport(report, 0); err != nil {
				return err
			}
			logger.Log.Info().Str("run_id", report.RunID).Msg("Report saved")
		}

		if scrapeSheet {
			spreadsheetID := sheets.ExtractSpreadsheetID(cfg.Sheets.SpreadsheetURL)
			if spreadsheetID == "" {
				return fmt.Errorf("could not extract spreadsheet ID from URL: %q", cfg.Sheets.SpreadsheetURL)
			}
			writer, err := sheets.NewWriter(ctx, spreadsheetID, cfg.Sheets.CredentialsPath)
			if err != nil {
				return err
			}
			name, _, err := writer.CreateSheetAndWriteReport(ctx, cliSheetName(report), report)
			if err != nil {
				return err
			}
			logger.Log.Info().Str("sheet", name).Msg("Report exported")
		}

		return printReport(cmd, report)
	},
}

func printReport(cmd *cobra.Command, report *models.Report) error {
	out := cmd.OutOrStdout()
	if scrapeJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err := fmt.Fprintln(out, models.FormatSummary(report, time.Now()))
	return err
}

func cliSheetName(report *models.Report) string {
	return "CLI_" + report.FinishedAt.UTC().Format("20060102_150405")
}
