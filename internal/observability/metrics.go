package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain metrics. HTTP traffic metrics live in the middleware package.
var (
	// ListingActions counts committed lifecycle operations by audit action.
	ListingActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_actions_total",
			Help: "Committed listing operations by audit action.",
		},
		[]string{"action"},
	)

	// ImagesIngested counts stored full/thumbnail pairs by listing variant.
	ImagesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_images_ingested_total",
			Help: "Images transcoded and stored, by listing variant.",
		},
		[]string{"variant"},
	)

	// ImageIngestSeconds observes the wall time of one Ingest call.
	ImageIngestSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listing_image_ingest_seconds",
			Help:    "Duration of image ingestion batches in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
		},
	)
)

func init() {
	prometheus.MustRegister(ListingActions, ImagesIngested, ImageIngestSeconds)
}
