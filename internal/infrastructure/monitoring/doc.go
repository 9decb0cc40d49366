/*
Package monitoring provides Prometheus metrics for the terminal host.

# Overview

Metrics cover HTTP requests, the terminal session registry (sessions,
creations by kind, attach outcomes and latency, resize broadcasts) and
websocket connections.

# Usage

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	router.Use(monitoring.Middleware(metrics))

	store := terminal.NewStore(provider, logger, opts).WithMetrics(metrics)

Collectors are registered on the Registerer passed to NewMetrics, so tests
can build as many collectors as they like.

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
