/*
Package runtime runs the msgflow bridge: it consumes chat messages from a
Watermill transport, enriches them through an extensions.Container and
publishes the resulting render plans.

# Architecture Overview

A Service owns one router with a single handler, msgflow-enrich. The handler
decodes a models.Message from the inbound topic, asks the container for a
RenderPlan and publishes the plan on the outbound topic. Render hints such
as group position travel as message metadata (see the metadata package).

# Package Structure

## Core Service (service.go, enrich.go)

The Service wires together:
  - the transport publisher and subscriber
  - the router and its middleware chain
  - the extensions container and metrics collector
  - an optional SQL outbox of published plans
  - HTTP servers for metrics and the inspection API

Submit publishes a message for asynchronous planning; Plan computes one
synchronously.

## Middleware (middleware.go)

  - CorrelationID: ensures message traceability
  - LogMessages: debug logging of payloads
  - Outbox: stores published plans
  - Tracer: OpenTelemetry spans
  - Metrics: Watermill router metrics for Prometheus
  - Retry: exponential backoff, skipped for unprocessable payloads
  - PoisonQueue: routes unprocessable payloads off the inbound topic
  - Recoverer: converts panics into errors

## Job Hooks (hooks.go)

JobHooks observe each handler attempt. LoggingHooks and MetricsHooks cover
the common cases.

## HTTP API (api.go)

  - GET /api/extensions lists registered handlers
  - POST /api/plan plans a message synchronously
  - GET /api/plans lists recent plans from the outbox
  - GET /api/stats returns the collector snapshot

# Subpackages

  - capability/: the five handler families and built-in handlers
  - codec/: wire formats
  - config/: configuration loading and validation
  - errors/: sentinel errors
  - extensions/: the container and render plans
  - ids/: ULID generation
  - logging/: logger abstraction
  - metadata/: metadata keys and helpers
  - metrics/: Prometheus collectors and snapshots
  - models/: messages and pipeline output
  - outbox/: SQL store of published plans
  - pipeline/: priority-ordered enrichment
  - registry/: the generic handler registry
  - transport/: transport builders
*/
package runtime
