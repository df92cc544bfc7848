package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"cotizador/services"
)

// sanitizeFilename removes characters that are unsafe for filenames.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, ":", "-")
	s = strings.ReplaceAll(s, "\"", "")
	return s
}

func exportFilename(data services.ExportData, ext string) string {
	name := data.Correlativo
	if name == "" {
		name = data.Title
	}
	return fmt.Sprintf("Cotizacion_%s.%s", sanitizeFilename(name), ext)
}

// HandleCotizacionExportExcel returns a handler that downloads a quotation as an Excel file.
func HandleCotizacionExportExcel(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		cotizacionID := e.Request.PathValue("id")
		if cotizacionID == "" {
			return ErrorJSON(e, http.StatusBadRequest, "Missing cotizacion ID")
		}

		data, err := services.BuildExportData(app, cotizacionID)
		if err != nil {
			return writeError(e, "export_excel", err)
		}

		xlsxBytes, err := services.GenerateExcel(data)
		if err != nil {
			log.Printf("export_excel: failed to generate: %v", err)
			return ErrorJSON(e, http.StatusInternalServerError, "Failed to generate Excel file")
		}

		e.Response.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(data, "xlsx")))
		e.Response.Write(xlsxBytes)
		return nil
	}
}

// HandleCotizacionExportPDF returns a handler that downloads a quotation as a PDF file.
func HandleCotizacionExportPDF(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		cotizacionID := e.Request.PathValue("id")
		if cotizacionID == "" {
			return ErrorJSON(e, http.StatusBadRequest, "Missing cotizacion ID")
		}

		data, err := services.BuildExportData(app, cotizacionID)
		if err != nil {
			return writeError(e, "export_pdf", err)
		}

		pdfBytes, err := services.GeneratePDF(data)
		if err != nil {
			log.Printf("export_pdf: failed to generate: %v", err)
			return ErrorJSON(e, http.StatusInternalServerError, "Failed to generate PDF file")
		}

		e.Response.Header().Set("Content-Type", "application/pdf")
		e.Response.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(data, "pdf")))
		e.Response.Write(pdfBytes)
		return nil
	}
}
