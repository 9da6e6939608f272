package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_reviews_written_total",
		Help: "Committed review submissions by outcome (created or updated).",
	}, []string{"outcome"})

	reviewsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_reviews_deleted_total",
		Help: "Committed review deletions.",
	})

	likesToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_review_likes_toggled_total",
		Help: "Like toggles by resulting action (like or unlike).",
	}, []string{"action"})

	changeRequestsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_change_requests_submitted_total",
		Help: "Change requests entering the moderation queue by kind.",
	}, []string{"kind"})

	changeRequestsDecided = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_change_requests_decided_total",
		Help: "Moderation decisions by resulting status.",
	}, []string{"status"})
)
