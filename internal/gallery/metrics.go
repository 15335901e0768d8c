package gallery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

var galleryItemsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kidzy_gallery_items_generated_total",
		Help: "Total number of photoshoot images generated, by status.",
	},
	[]string{"status"},
)
