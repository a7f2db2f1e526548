package google

import (
	"context"
	"fmt"
	"os"
	"strings"

	"fsaeinventory/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const transactionsSheet = "Transactions"

// SheetsStore keeps the inventory snapshot on one sheet of a spreadsheet:
// a header row followed by one row per item.
type SheetsStore struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *zerolog.Logger
}

// NewSheetsStore authenticates with a service account credentials file.
func NewSheetsStore(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, logger *zerolog.Logger) (*SheetsStore, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return newSheetsStore(srv, spreadsheetID, sheetName, logger), nil
}

func newSheetsStore(srv *sheets.Service, spreadsheetID, sheetName string, logger *zerolog.Logger) *SheetsStore {
	if sheetName == "" {
		sheetName = models.DefaultSheetName
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SheetsStore{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}
}

// TestConnection reads the first header cell.
func (s *SheetsStore) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// LoadInventory reads all item rows; the header row names the fields.
func (s *SheetsStore) LoadInventory(ctx context.Context) ([]models.Item, error) {
	records, err := s.readRecords(ctx, s.sheetName+"!A:H")
	if err != nil {
		return nil, err
	}
	items := make([]models.Item, 0, len(records))
	for i, rec := range records {
		items = append(items, models.ItemFromRecord(rec, i))
	}
	return items, nil
}

// LoadTransactions reads the optional movement log sheet.
func (s *SheetsStore) LoadTransactions(ctx context.Context) ([]models.Transaction, error) {
	records, err := s.readRecords(ctx, transactionsSheet+"!A:G")
	if err != nil {
		return nil, err
	}
	txs := make([]models.Transaction, 0, len(records))
	for _, rec := range records {
		txs = append(txs, models.TransactionFromRecord(rec))
	}
	return txs, nil
}

// SaveInventory writes header plus all rows from A1, then clears the rows
// left below the new snapshot. A failed write leaves the sheet untouched.
func (s *SheetsStore) SaveInventory(ctx context.Context, items []models.Item) error {
	values := make([][]interface{}, 0, len(items)+1)
	header := make([]interface{}, len(models.ItemColumns))
	for i, col := range models.ItemColumns {
		header[i] = col
	}
	values = append(values, header)
	for _, item := range items {
		values = append(values, itemRowValues(item))
	}

	rangeData := fmt.Sprintf("%s!A1:H%d", s.sheetName, len(values))
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to write sheet: %w", err)
	}

	// Старые строки ниже нового снимка
	tailRange := fmt.Sprintf("%s!A%d:H", s.sheetName, len(values)+1)
	_, err = s.service.Spreadsheets.Values.Clear(s.spreadsheetID, tailRange, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to clear trailing rows %s: %w", tailRange, err)
	}

	s.logger.Debug().Int("items", len(items)).Str("range", rangeData).Msg("inventory sheet updated")
	return nil
}

func (s *SheetsStore) readRecords(ctx context.Context, rangeData string) ([]models.Record, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, rangeData).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", rangeData, err)
	}
	return rowsToRecords(resp.Values), nil
}

// rowsToRecords turns a header row plus data rows into records. Blank rows
// are skipped, short rows leave trailing fields unset.
func rowsToRecords(rows [][]interface{}) []models.Record {
	if len(rows) == 0 {
		return []models.Record{}
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = strings.TrimSpace(fmt.Sprint(cell))
	}

	records := make([]models.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		rec := make(models.Record, len(header))
		for i, cell := range row {
			if i >= len(header) || header[i] == "" {
				continue
			}
			rec[header[i]] = cell
		}
		records = append(records, rec)
	}
	return records
}

func isBlankRow(row []interface{}) bool {
	for _, cell := range row {
		if strings.TrimSpace(fmt.Sprint(cell)) != "" {
			return false
		}
	}
	return true
}

func itemRowValues(item models.Item) []interface{} {
	return []interface{}{
		item.ID,
		item.Name,
		item.Category,
		item.Quantity,
		item.MinStock,
		item.Unit,
		item.Location,
		string(item.Status),
	}
}
