package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bansCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bans_created_total",
			Help: "Total number of ban rows created",
		},
		[]string{"scope"},
	)

	bansDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bans_deleted_total",
			Help: "Total number of ban rows deleted",
		},
	)

	banStoreFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ban_store_failures_total",
			Help: "Total number of failed ban store operations",
		},
		[]string{"op"},
	)
)
