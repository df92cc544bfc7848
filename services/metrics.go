package services

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	expansiones = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cotizador",
		Name:      "expansiones_total",
		Help:      "BOM expansions by result (ok, ciclo, error).",
	}, []string{"resultado"})

	expansionIteraciones = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cotizador",
		Name:      "expansion_iteraciones",
		Help:      "Worklist pops per successful expansion.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	expansionDuracion = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cotizador",
		Name:      "expansion_duracion_segundos",
		Help:      "Time spent expanding a run.",
		Buckets:   prometheus.DefBuckets,
	})

	cotizacionesGeneradas = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cotizador",
		Name:      "cotizaciones_generadas_total",
		Help:      "First-generation quotations written (new or regenerated).",
	})

	revisionesCreadas = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cotizador",
		Name:      "revisiones_total",
		Help:      "Quotation revisions created by edits.",
	})

	obrasMaterializadas = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cotizador",
		Name:      "obras_materializadas_total",
		Help:      "Projects created from quotations.",
	})

	filasImportadas = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cotizador",
		Name:      "filas_importadas_total",
		Help:      "Catalog import rows by kind and result.",
	}, []string{"tipo", "resultado"})
)

func observeExpansion(res *ExpansionResult, err error, took time.Duration) {
	expansionDuracion.Observe(took.Seconds())
	var cycle *RuleCycleError
	switch {
	case err == nil:
		expansiones.WithLabelValues("ok").Inc()
		expansionIteraciones.Observe(float64(res.Iteraciones))
	case errors.As(err, &cycle):
		expansiones.WithLabelValues("ciclo").Inc()
	default:
		expansiones.WithLabelValues("error").Inc()
	}
}
