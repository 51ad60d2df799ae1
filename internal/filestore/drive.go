package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// GoogleSheetMIME is the MIME type of a native Google Sheets document.
	GoogleSheetMIME = "application/vnd.google-apps.spreadsheet"
	// XLSXMIME is the MIME type Google Sheets are exported as.
	XLSXMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Drive reads spreadsheets from Google Drive by file ID. Native Google
// Sheets are exported as XLSX.
type Drive struct {
	svc *drive.Service
}

// NewDrive creates a Drive source. An empty credentialsFile uses Application
// Default Credentials.
func NewDrive(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*Drive, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(drive.DriveReadonlyScope))

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewDrive: creating drive service: %w", err)
	}
	return &Drive{svc: svc}, nil
}

// Fetch implements Source. ref is a Drive file ID.
func (d *Drive) Fetch(ctx context.Context, ref string) (File, error) {
	id := strings.Trim(ref, "/")
	if id == "" {
		return File{}, fmt.Errorf("empty Drive file ID")
	}

	meta, err := d.svc.Files.Get(id).Fields("id, name, mimeType").Context(ctx).Do()
	if err != nil {
		return File{}, driveError(id, err)
	}

	var resp *http.Response
	file := File{Name: meta.Name, ContentType: meta.MimeType}
	if meta.MimeType == GoogleSheetMIME {
		resp, err = d.svc.Files.Export(id, XLSXMIME).Context(ctx).Download()
		file.ContentType = XLSXMIME
		if !strings.HasSuffix(strings.ToLower(file.Name), ".xlsx") {
			file.Name += ".xlsx"
		}
	} else {
		resp, err = d.svc.Files.Get(id).Context(ctx).Download()
	}
	if err != nil {
		return File{}, driveError(id, err)
	}
	defer resp.Body.Close()

	if file.Data, err = io.ReadAll(resp.Body); err != nil {
		return File{}, fmt.Errorf("reading Drive file %s: %w", id, err)
	}
	return file, nil
}

func driveError(id string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: drive://%s", ErrNotFound, id)
	}
	return fmt.Errorf("drive file %s: %w", id, err)
}
