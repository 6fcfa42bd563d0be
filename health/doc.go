// Package health provides health checking primitives for the service and
// its dependencies.
//
// A Checker reports a Status: Healthy, Degraded, or Unhealthy. Degraded
// components are surfaced but keep the service ready; Unhealthy ones fail
// readiness.
//
// # Aggregating Health Checks
//
//	agg := health.NewAggregator()
//	agg.Register("database", health.NewPingChecker("database", db.PingContext))
//	agg.Register("cache", health.NewOptionalPingChecker("cache", redisPing))
//	agg.Register("signing_key", health.NewKeyChecker(keys))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
// Handlers write {"ok": bool, "status": "..."} JSON bodies:
//
//	health.RegisterHandlers(mux, agg, nil)
//	// GET /healthz        liveness
//	// GET /readyz         readiness (503 when unhealthy)
//	// GET /health         every check with details
//	// GET /health/{name}  a single check
package health
