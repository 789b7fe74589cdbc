package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ruleforge/ruleforge/internal/ingest"
)

var (
	rulesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ruleforge_rules_created_total",
		Help: "Total number of canonical rules created",
	})
	rulesUpdatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ruleforge_rules_updated_total",
		Help: "Total number of canonical rules updated",
	})
	recordsSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ruleforge_records_skipped_total",
		Help: "Total number of export records skipped as not ingestible",
	})
	ingestErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ruleforge_ingest_errors_total",
		Help: "Total number of per-record ingestion failures",
	})
	mappingsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ruleforge_mappings_created_total",
		Help: "Total number of rule mappings created, by kind",
	}, []string{"kind"})
	cvesEnrichedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ruleforge_cves_enriched_total",
		Help: "Total number of vulnerability entries fetched and stored",
	})
	enrichErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ruleforge_enrich_errors_total",
		Help: "Total number of enrichment failures",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		rulesCreatedTotal,
		rulesUpdatedTotal,
		recordsSkippedTotal,
		ingestErrorsTotal,
		mappingsCreatedTotal,
		cvesEnrichedTotal,
		enrichErrorsTotal,
	)
}

// ObserveIngest folds one run result into the counters.
func ObserveIngest(res ingest.Result) {
	rulesCreatedTotal.Add(float64(res.Created))
	rulesUpdatedTotal.Add(float64(res.Updated))
	recordsSkippedTotal.Add(float64(res.RecordsSkipped))
	ingestErrorsTotal.Add(float64(res.Errors))
	for kind, count := range res.MappingsCreated {
		mappingsCreatedTotal.WithLabelValues(kind).Add(float64(count))
	}
}

// ObserveEnrichment records the outcome of one enrichment run.
func ObserveEnrichment(enriched, mappings, errors int) {
	cvesEnrichedTotal.Add(float64(enriched))
	mappingsCreatedTotal.WithLabelValues(ingest.MappingKindVulnerability).Add(float64(mappings))
	enrichErrorsTotal.Add(float64(errors))
}
