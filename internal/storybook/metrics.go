package storybook

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"

	releaseTimeout = 5 * time.Second
)

var pagesGeneratedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kidzy_story_pages_generated_total",
		Help: "Total number of story page images generated, by status.",
	},
	[]string{"status"},
)
