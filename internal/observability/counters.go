package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain event counters, registered via RegisterCollectors.
var (
	TicketsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "deskclient",
		Name:      "tickets_created_total",
		Help:      "Tickets created through this client",
	})
	ArticlesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "deskclient",
		Name:      "kb_articles_created_total",
		Help:      "Knowledge-base articles created through this client",
	})
	SuggestionPolls = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "deskclient",
		Name:      "suggestion_poll_attempts_total",
		Help:      "Individual suggestion poll attempts",
	})
	SuggestionResolved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "deskclient",
		Name:      "suggestion_resolved_total",
		Help:      "Polls that resolved a suggestion within the retry budget",
	})
	SuggestionExhausted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "deskclient",
		Name:      "suggestion_exhausted_total",
		Help:      "Polls that exhausted the retry budget without a suggestion",
	})
)
