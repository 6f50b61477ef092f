package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"mars-scraper/logger"
	"mars-scraper/models"
)

// Writer exports reports to Google Sheets
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewWriter creates a new Google Sheets writer. Credentials are read from
// credentialsPath, or from GOOGLE_SHEETS_CREDENTIALS when the path is empty.
func NewWriter(ctx context.Context, spreadsheetID string, credentialsPath string) (*Writer, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}

	var credsJSON []byte
	var err error

	if credentialsPath != "" {
		credsJSON, err = os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	} else {
		// Trim whitespace and newlines that might be in the environment variable
		credsEnv := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_CREDENTIALS"))
		if credsEnv == "" {
			return nil, fmt.Errorf("credentials not found: GOOGLE_SHEETS_CREDENTIALS environment variable is empty or not set")
		}
		logger.Log.Debug().Int("bytes", len(credsEnv)).Msg("reading credentials from GOOGLE_SHEETS_CREDENTIALS")
		credsJSON = []byte(credsEnv)
	}

	if err := validateCredentials(credsJSON); err != nil {
		return nil, err
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
	}, nil
}

func validateCredentials(credsJSON []byte) error {
	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return fmt.Errorf("invalid credentials JSON (check if JSON is properly formatted): %w", err)
	}
	if creds["type"] != "service_account" {
		return fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %v", creds["type"])
	}
	return nil
}

// SheetName returns the name of the sheet a report is exported to
func SheetName(runNumber int, report *models.Report) string {
	return fmt.Sprintf("Run_%d_%s", runNumber, report.FinishedAt.UTC().Format("20060102_150405"))
}

// CreateSheetAndWriteReport creates a new sheet and writes the report to it.
// The sheet is inserted at the beginning (index 0) of the spreadsheet.
// Returns the sheet name and sheet ID (gid) that was created.
func (w *Writer) CreateSheetAndWriteReport(ctx context.Context, sheetName string, report *models.Report) (string, int64, error) {
	// Sanitize sheet name (Google Sheets has restrictions)
	sheetName = sanitizeSheetName(sheetName)

	insertIndex := int64(0)
	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: sheetName,
						Index: insertIndex,
					},
				},
			},
		},
	}

	batchUpdateResp, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, batchUpdateRequest).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	var sheetID int64
	if len(batchUpdateResp.Replies) > 0 && batchUpdateResp.Replies[0].AddSheet != nil {
		sheetID = batchUpdateResp.Replies[0].AddSheet.Properties.SheetId
	}

	logger.Log.Info().Str("sheet", sheetName).Int64("sheet_id", sheetID).Msg("created sheet")

	values := buildReportRows(report)
	range_ := fmt.Sprintf("'%s'!A1", sheetName)
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, range_, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to write to sheet: %w", err)
	}

	logger.Log.Info().Str("sheet", sheetName).Int("rows", len(values)).Msg("wrote report to sheet")
	return sheetName, sheetID, nil
}

var reportHeader = []interface{}{"Task", "Success", "Visited At", "Field", "Value"}

// buildReportRows lays a report out as a metadata row, a header and one row
// per payload field. Hemispheres get one row per image.
func buildReportRows(report *models.Report) [][]interface{} {
	values := [][]interface{}{
		{"Run", report.RunID, "Started", formatTime(report.StartedAt), "Finished", formatTime(report.FinishedAt)},
		reportHeader,
	}

	for _, res := range report.Results {
		for _, field := range payloadFields(res.Payload) {
			values = append(values, []interface{}{
				string(res.Task),
				res.Success,
				formatTime(res.VisitedAt),
				field[0],
				field[1],
			})
		}
	}
	return values
}

func payloadFields(p models.Payload) [][2]string {
	switch p := p.(type) {
	case models.NewsPayload:
		return [][2]string{{"Title", p.Title}, {"Summary", p.Summary}}
	case models.FeaturedImagePayload:
		return [][2]string{{"Image URL", p.ImageURL}}
	case models.WeatherPayload:
		return [][2]string{{"Tweet", p.TweetText}}
	case models.FactsPayload:
		return [][2]string{{"Table HTML", p.TableHTML}}
	case models.HemispheresPayload:
		fields := make([][2]string, 0, len(p.Images))
		for _, img := range p.Images {
			fields = append(fields, [2]string{img.Title, img.ImageURL})
		}
		return fields
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// maxSheetNameRunes is the longest tab title Google Sheets accepts
const maxSheetNameRunes = 100

// sanitizeSheetName removes invalid characters from sheet name and
// truncates it to maxSheetNameRunes
func sanitizeSheetName(name string) string {
	// Google Sheets sheet names cannot contain: / \ ? * [ ] '
	invalidChars := []string{"/", "\\", "?", "*", "[", "]", "'"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	if runes := []rune(result); len(runes) > maxSheetNameRunes {
		result = string(runes[:maxSheetNameRunes])
	}
	result = strings.TrimSpace(result)
	if result == "" {
		result = "Sheet1"
	}
	return result
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func ExtractSpreadsheetID(url string) string {
	// Handle various URL formats:
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit?usp=sharing
	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		return ""
	}

	idPart := parts[1]
	if idx := strings.Index(idPart, "/"); idx != -1 {
		idPart = idPart[:idx]
	}
	if idx := strings.Index(idPart, "?"); idx != -1 {
		idPart = idPart[:idx]
	}

	return strings.TrimSpace(idPart)
}
