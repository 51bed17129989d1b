// Package telemetry holds the Prometheus metrics exported on /metrics.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "commentgender"

var (
	// CommentPages counts commentThreads pages fetched from YouTube.
	CommentPages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "comment_pages_fetched_total",
		Help:      "Comment thread pages fetched from the YouTube Data API.",
	})

	// Comments counts comment records (top-level and replies) extracted.
	Comments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "comments_fetched_total",
		Help:      "Comment records extracted, by kind.",
	}, []string{"kind"})

	// GenerationRequests counts text-generation calls by provider.
	GenerationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_requests_total",
		Help:      "Text-generation requests sent, by provider.",
	}, []string{"provider"})

	// GenerationErrors counts failed text-generation calls by provider.
	GenerationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_errors_total",
		Help:      "Text-generation requests that failed, by provider.",
	}, []string{"provider"})

	// ClassificationRounds counts classification rounds executed.
	ClassificationRounds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classification_rounds_total",
		Help:      "Classification rounds executed.",
	})

	// Labels counts final labels assigned, by gender code.
	Labels = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "labels_total",
		Help:      "Usernames labeled, by gender code.",
	}, []string{"gender"})

	// Runs counts pipeline runs by outcome stage ("ok" or the failing stage).
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Pipeline runs, by outcome.",
	}, []string{"outcome"})
)

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
