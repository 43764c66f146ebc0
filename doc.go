// Package msgflow enriches chat messages and decides how a client should
// draw them. An extensions Container holds five capability registries
// (content renderers, attachment renderers, bubble decorators, message
// actions and attachment type handlers) plus a priority-ordered enrichment
// pipeline that detects one-time codes, mentions, links and phone numbers.
// Container.Plan folds a Message through the pipeline and resolves every
// handler into a RenderPlan.
//
// Service bridges the engine onto Watermill. It reads the target transport
// (Kafka, RabbitMQ, AWS SNS/SQS, NATS, HTTP or Go channels) from Config,
// consumes messages from the inbound topic and publishes render plans to the
// outbound topic through the default middleware chain: correlation ids,
// logging, outbox persistence, tracing, metrics, retries, poison queue
// forwarding and panic recovery.
//
// # Extensions
//
// Handlers are registered on an explicit Container; there is no global
// registry. NewDefaultExtensions registers the built-ins. Duplicate handler
// ids are logged and kept unless ExtensionsOptions.StrictIDs is set, in which
// case registration fails with a DuplicateHandlerError.
//
// # Render hints
//
// Group position, sender display name and bubble width travel as message
// metadata. RenderHints builds that metadata from a PlanContext for
// Service.Submit.
//
// # HTTP API
//
// With APIEnabled the service serves the handler inventory, synchronous
// planning, recent plans from the outbox and counter snapshots under /api/.
package msgflow
