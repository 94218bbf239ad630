// Package metrics exposes Prometheus counters for the import pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the import pipeline counters.
type Metrics struct {
	RowsInserted      prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	ParseErrors       prometheus.Counter
	RowWarnings       prometheus.Counter
	BatchesFinished   *prometheus.CounterVec
}

// New registers the import counters with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RowsInserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "import_rows_inserted_total",
			Help: "Transactions inserted by CSV imports.",
		}),
		DuplicatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "import_duplicates_skipped_total",
			Help: "Candidate rows skipped as duplicates.",
		}),
		ParseErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "import_parse_errors_total",
			Help: "Rows dropped with a parse error.",
		}),
		RowWarnings: factory.NewCounter(prometheus.CounterOpts{
			Name: "import_row_warnings_total",
			Help: "Rows that proceeded with a defaulted value.",
		}),
		BatchesFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "import_batches_finished_total",
			Help: "Import batches finalized, by status.",
		}, []string{"status"}),
	}
}
