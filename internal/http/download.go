package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/export"
)

// writeSpreadsheet serves sheet as an .xls attachment. Validation runs before any
// header is written so that an empty export can still be answered with an error.
func (r responder) writeSpreadsheet(ctx context.Context, w http.ResponseWriter, filename string, sheet export.Spreadsheet) error {
	if err := sheet.Validate(); err != nil {
		return err
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := sheet.WriteTo(w); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to write spreadsheet", "error", err, "filename", filename)
	}
	return nil
}
