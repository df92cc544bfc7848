package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"cotizador/services"
)

type importResponse struct {
	Validacion  *services.ValidationResult `json:"validacion"`
	Importacion *services.ImportResult     `json:"importacion,omitempty"`
}

// HandleCatalogImport validates an uploaded CSV/XLSX catalog file and, unless
// ?dry_run=1, commits its valid rows.
// Route: POST /api/cotizador/import/{kind}
func HandleCatalogImport(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		kind, err := services.ParseImportKind(e.Request.PathValue("kind"))
		if err != nil {
			return ErrorJSON(e, http.StatusBadRequest, err.Error())
		}

		// Parse multipart form (max 10MB)
		if err := e.Request.ParseMultipartForm(10 << 20); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "File too large or invalid form data")
		}

		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Please select a file to upload")
		}
		defer file.Close()

		_, rows, err := services.ParseCatalogFile(file, header.Filename)
		if err != nil {
			return ErrorJSON(e, http.StatusBadRequest, err.Error())
		}

		resp := importResponse{Validacion: services.ValidateCatalogRows(kind, rows)}
		if e.Request.URL.Query().Get("dry_run") == "1" {
			return e.JSON(http.StatusOK, resp)
		}

		resp.Importacion, err = services.CommitCatalogImport(app, kind, resp.Validacion.Rows)
		if err != nil {
			return writeError(e, "catalog_import", err)
		}
		log.Printf("catalog_import: %s %s: %d imported, %d failed, %d invalid",
			kind, header.Filename, resp.Importacion.Imported, resp.Importacion.Failed, resp.Validacion.ErrorRows)
		return e.JSON(http.StatusOK, resp)
	}
}

// HandleCatalogErrorReport downloads posted validation errors as an Excel file.
// Route: POST /api/cotizador/import/errores
func HandleCatalogErrorReport() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var errs []services.ValidationError
		if err := json.NewDecoder(e.Request.Body).Decode(&errs); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid error data")
		}

		xlsxBytes, err := services.GenerateErrorReport(errs)
		if err != nil {
			log.Printf("error_report: %v", err)
			return ErrorJSON(e, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}

		filename := fmt.Sprintf("Errores_Importacion_%s.xlsx", time.Now().Format("2006-01-02"))
		e.Response.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		e.Response.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="%s"`, filename))
		e.Response.Write(xlsxBytes)
		return nil
	}
}
