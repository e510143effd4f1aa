package station

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gasboard_records_imported_total",
		Help: "Total number of price records inserted by imports",
	})

	importFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gasboard_import_failures_total",
		Help: "Total number of import batches that stopped on a failing record",
	})
)
