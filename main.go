package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"cotizador/collections"
	"cotizador/config"
	"cotizador/handlers"
	"cotizador/services"
)

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app := pocketbase.New()
	app.RootCmd.AddCommand(importCommand(app))

	// Create collections, seed and migrate on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		collections.Setup(app)
		if err := collections.Seed(app); err != nil {
			log.Printf("Warning: seed data failed: %v", err)
		}
		if err := collections.MigrateConsolidateRules(app); err != nil {
			log.Printf("Warning: rule consolidation failed: %v", err)
		}
		if err := collections.MigrateNormalizeFamilias(app); err != nil {
			log.Printf("Warning: familia normalization failed: %v", err)
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		if cfg.Metrics.Enabled {
			se.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		api := se.Router.Group("/api/cotizador")
		api.BindFunc(handlers.RequestMetricsMiddleware())

		// ── Runs ─────────────────────────────────────────────────
		api.POST("/corridas", handlers.HandleCreateCorrida(app, cfg))
		api.GET("/corridas/{id}/expansion", handlers.HandleExpandCorrida(app, cfg))
		api.POST("/corridas/{id}/cotizacion", handlers.HandleGenerateCotizacion(app, cfg))

		// ── Quotations ───────────────────────────────────────────
		api.POST("/cotizaciones/{id}/revisiones", handlers.HandleEditCotizacion(app, cfg))
		api.GET("/cotizaciones/{id}/export/excel", handlers.HandleCotizacionExportExcel(app))
		api.GET("/cotizaciones/{id}/export/pdf", handlers.HandleCotizacionExportPDF(app))
		api.POST("/cotizaciones/{id}/obra", handlers.HandleMaterializeObra(app))

		// ── Projects ─────────────────────────────────────────────
		api.GET("/obras/{id}/avance", handlers.HandleObraAvance(app))
		api.GET("/obras/{id}/mediciones", handlers.HandleTablaMediciones(app))
		api.POST("/obras/{id}/mediciones", handlers.HandleRegistrarMediciones(app))
		api.PUT("/tareas/{id}/requerimientos", handlers.HandleReemplazarRequerimientos(app))

		// ── Catalog ──────────────────────────────────────────────
		api.GET("/materiales", handlers.HandleListMateriales(app))
		api.POST("/materiales/costos", handlers.HandleActualizarCostos(app))
		api.GET("/opciones", handlers.HandleOpciones())
		api.POST("/import/errores", handlers.HandleCatalogErrorReport())
		api.POST("/import/{kind}", handlers.HandleCatalogImport(app))

		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// importCommand loads a catalog file from the command line. Invalid rows are
// written to <file>.errores.xlsx next to the input.
func importCommand(app *pocketbase.PocketBase) *cobra.Command {
	kinds := make([]string, len(services.ImportKinds))
	for i, k := range services.ImportKinds {
		kinds[i] = string(k)
	}

	return &cobra.Command{
		Use:       "import <" + strings.Join(kinds, "|") + "> <file>",
		Short:     "Import a catalog CSV/XLSX file",
		Args:      cobra.ExactArgs(2),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := services.ParseImportKind(args[0])
			if err != nil {
				return err
			}
			collections.Setup(app)

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			_, rows, err := services.ParseCatalogFile(f, args[1])
			if err != nil {
				return err
			}
			val := services.ValidateCatalogRows(kind, rows)
			log.Printf("import: %s: %d rows, %d valid, %d invalid", args[1], val.TotalRows, val.ValidRows, val.ErrorRows)

			if len(val.Errors) > 0 {
				report, err := services.GenerateErrorReport(val.Errors)
				if err != nil {
					return err
				}
				path := strings.TrimSuffix(args[1], ".csv")
				path = strings.TrimSuffix(path, ".xlsx") + ".errores.xlsx"
				if err := os.WriteFile(path, report, 0o644); err != nil {
					return fmt.Errorf("write error report: %w", err)
				}
				log.Printf("import: error report written to %s", path)
			}

			res, err := services.CommitCatalogImport(app, kind, val.Rows)
			if err != nil {
				return err
			}
			for _, e := range res.Errors {
				log.Printf("import: %v", e)
			}
			log.Printf("import: %d imported, %d failed", res.Imported, res.Failed)
			return nil
		},
	}
}
