package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"keyauth/internal/model"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetSyncService mirrors the license table to a Google Sheet so keys can
// be eyeballed outside the admin API. It is optional: a nil service is a
// no-op on every method.
type SheetSyncService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

func NewSheetSyncService(enableSync bool, credentialPath, spreadsheetID, sheetName string) (*SheetSyncService, error) {
	if !enableSync {
		return nil, nil
	}

	ctx := context.Background()

	b, err := os.ReadFile(credentialPath)
	if err != nil {
		return nil, err
	}

	creds, err := google.CredentialsFromJSON(ctx, b, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, err
	}

	return &SheetSyncService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func (s *SheetSyncService) row(lic *model.License) []interface{} {
	identity := ""
	if lic.HWID != nil {
		identity = *lic.HWID
	}
	expiry := "Lifetime"
	if lic.Expiry != nil {
		expiry = lic.Expiry.Format(time.RFC3339)
	}
	return []interface{}{
		lic.KeyCode,
		model.UsageString(lic.Uses, lic.AllowedUses),
		identity,
		expiry,
		lic.Banned,
		lic.CreatedAt.Format(time.RFC3339),
		lic.UpdatedAt.Format(time.RFC3339),
	}
}

// SyncLicense upserts one license row in the sheet, keyed by the key code in
// column A.
func (s *SheetSyncService) SyncLicense(lic *model.License) error {
	if s == nil {
		return nil
	}

	rangeToSearch := fmt.Sprintf("%s!A2:A", s.sheetName)
	keyResp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, rangeToSearch).Do()
	if err != nil {
		return fmt.Errorf("failed to read sheet keys: %v", err)
	}

	var rowIndex int
	found := false
	for i, row := range keyResp.Values {
		if len(row) > 0 && row[0] == lic.KeyCode {
			found = true
			rowIndex = i + 2 // values start at A2
			break
		}
	}

	values := [][]interface{}{s.row(lic)}

	if found {
		rangeData := fmt.Sprintf("%s!A%d:G%d", s.sheetName, rowIndex, rowIndex)
		_, err = s.service.Spreadsheets.Values.Update(
			s.spreadsheetID,
			rangeData,
			&sheets.ValueRange{Values: values},
		).ValueInputOption("USER_ENTERED").Do()
	} else {
		_, err = s.service.Spreadsheets.Values.Append(
			s.spreadsheetID,
			s.sheetName+"!A2:G",
			&sheets.ValueRange{Values: values},
		).ValueInputOption("USER_ENTERED").Do()
	}

	if err != nil {
		return fmt.Errorf("failed to sync license to sheet: %v", err)
	}

	log.WithField("key", lic.KeyCode).Debug("license synced to sheet")
	return nil
}

// BatchSyncLicenses rewrites the whole sheet body from the given rows.
func (s *SheetSyncService) BatchSyncLicenses(licenses []model.License) error {
	if s == nil {
		return nil
	}

	var values [][]interface{}
	for i := range licenses {
		values = append(values, s.row(&licenses[i]))
	}

	clearRange := s.sheetName + "!A2:G"
	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).Do(); err != nil {
		return fmt.Errorf("failed to clear sheet: %v", err)
	}
	if len(values) == 0 {
		return nil
	}

	_, err := s.service.Spreadsheets.Values.Append(
		s.spreadsheetID,
		clearRange,
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Do()
	if err != nil {
		return fmt.Errorf("failed to batch sync licenses: %v", err)
	}

	return nil
}
