package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var storiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "story_service_stories_total",
	Help: "Total number of successful story operations, partitioned by operation.",
}, []string{"operation"})

func countStoryOp(operation string) {
	storiesTotal.With(prometheus.Labels{"operation": operation}).Inc()
}
