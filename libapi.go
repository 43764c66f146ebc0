package msgflow

import (
	runtimepkg "github.com/drblury/msgflow/internal/runtime"
	"github.com/drblury/msgflow/internal/runtime/capability"
	codecpkg "github.com/drblury/msgflow/internal/runtime/codec"
	configpkg "github.com/drblury/msgflow/internal/runtime/config"
	errspkg "github.com/drblury/msgflow/internal/runtime/errors"
	"github.com/drblury/msgflow/internal/runtime/extensions"
	idspkg "github.com/drblury/msgflow/internal/runtime/ids"
	loggingpkg "github.com/drblury/msgflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/msgflow/internal/runtime/metadata"
	metricspkg "github.com/drblury/msgflow/internal/runtime/metrics"
	"github.com/drblury/msgflow/internal/runtime/models"
	outboxpkg "github.com/drblury/msgflow/internal/runtime/outbox"
	"github.com/drblury/msgflow/internal/runtime/pipeline"
	"github.com/drblury/msgflow/internal/runtime/registry"
	transportpkg "github.com/drblury/msgflow/internal/runtime/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	PlanRequest         = runtimepkg.PlanRequest
	OutboxStore         = outboxpkg.Store
	OutboxRecord        = outboxpkg.Record
	Transport           = transportpkg.Transport
	TransportFactory    = transportpkg.Factory
	TransportBuilder    = transportpkg.Builder
	TransportConfig     = transportpkg.Config
	TransportRegistry   = transportpkg.Registry
	Capabilities        = transportpkg.Capabilities

	// Engine
	Container             = extensions.Container
	ExtensionsOptions     = extensions.Options
	ExtensionDependencies = extensions.Dependencies
	PlanContext           = extensions.PlanContext
	RenderPlan            = extensions.RenderPlan
	ActionInfo            = extensions.ActionInfo
	HandlerInfo           = extensions.HandlerInfo
	Inventory             = extensions.Inventory

	Message          = models.Message
	Attachment       = models.Attachment
	ProcessedMessage = models.ProcessedMessage
	TextHighlight    = models.TextHighlight
	DetectedCode     = models.DetectedCode
	Mention          = models.Mention

	// Capability families
	ContentRenderer       = capability.ContentRenderer
	AttachmentRenderer    = capability.AttachmentRenderer
	BubbleDecorator       = capability.BubbleDecorator
	MessageAction         = capability.MessageAction
	AttachmentTypeHandler = capability.AttachmentTypeHandler
	TypeHandlerFunc       = capability.TypeHandlerFunc
	RenderContext         = capability.RenderContext
	DecoratorContext      = capability.DecoratorContext
	Decoration            = capability.Decoration
	BubblePosition        = capability.BubblePosition
	Block                 = capability.Block
	Clipboard             = capability.Clipboard
	URLOpener             = capability.URLOpener

	Processor     = pipeline.Processor
	ProcessorFunc = pipeline.Func
	PipelineHooks = pipeline.Hooks
	RunContext    = pipeline.RunContext

	RegistryObserver = registry.Observer

	MetricsCollector = metricspkg.Collector
	MetricsSnapshot  = metricspkg.Snapshot

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	RetryMiddlewareConfig  = runtimepkg.RetryMiddlewareConfig

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	UnprocessableMessageError = runtimepkg.UnprocessableMessageError
	ConfigValidationError     = errspkg.ConfigValidationError
	DuplicateHandlerError     = errspkg.DuplicateHandlerError

	// Job lifecycle hooks
	JobContext = runtimepkg.JobContext
	JobHooks   = runtimepkg.JobHooks
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	RenderHints    = runtimepkg.RenderHints
	DefaultConfig  = configpkg.Default
	LoadConfig     = configpkg.Load
	ValidateConfig = configpkg.ValidateConfig

	NewExtensions       = extensions.New
	NewMetricsCollector = metricspkg.NewCollector
	OpenOutbox          = outboxpkg.Open

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	OutboxMiddleware        = runtimepkg.OutboxMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RetryMiddleware         = runtimepkg.RetryMiddleware
	PoisonQueueMiddleware   = runtimepkg.PoisonQueueMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	// Job lifecycle hooks
	JobHooksMiddleware = runtimepkg.JobHooksMiddleware
	LoggingHooks       = runtimepkg.LoggingHooks
	MetricsHooks       = runtimepkg.MetricsHooks

	// Pipeline hooks
	PipelineLoggingHooks = pipeline.LoggingHooks
	PipelineMetricsHooks = pipeline.MetricsHooks

	// Transports
	DefaultTransportFactory = transportpkg.DefaultFactory
	NewTransportRegistry    = transportpkg.NewRegistry
	NewDefaultTransports    = transportpkg.NewDefaultRegistry

	Marshal       = codecpkg.Marshal
	MarshalIndent = codecpkg.MarshalIndent
	Unmarshal     = codecpkg.Unmarshal
	Encode        = codecpkg.Encode
	Decode        = codecpkg.Decode

	ErrHandlerRequired         = errspkg.ErrHandlerRequired
	ErrHandlerIDRequired       = errspkg.ErrHandlerIDRequired
	ErrDuplicateHandlerID      = errspkg.ErrDuplicateHandlerID
	ErrUnknownAction           = errspkg.ErrUnknownAction
	ErrMessageRequired         = errspkg.ErrMessageRequired
	ErrExtensionsRequired      = errspkg.ErrExtensionsRequired
	ErrPublisherRequired       = errspkg.ErrPublisherRequired
	ErrConfigRequired          = errspkg.ErrConfigRequired
	ErrLoggerRequired          = errspkg.ErrLoggerRequired
	ErrUnsupportedOutboxDriver = errspkg.ErrUnsupportedOutboxDriver
	ErrUnsupportedWireFormat   = errspkg.ErrUnsupportedWireFormat
	ErrUnknownTransport        = errspkg.ErrUnknownTransport

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NopLogger            = loggingpkg.NopLogger

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID
)

// Metadata keys - use these constants for standard metadata fields.
const (
	MetadataKeyCorrelationID   = metadatapkg.KeyCorrelationID
	MetadataKeyEventType       = metadatapkg.KeyEventType
	MetadataKeyRunID           = metadatapkg.KeyRunID
	MetadataKeyContentRenderer = metadatapkg.KeyContentRenderer

	// Render hints read by the enrichment handler.
	MetadataKeyIsGroup      = metadatapkg.KeyIsGroup
	MetadataKeyFirstInGroup = metadatapkg.KeyFirstInGroup
	MetadataKeyLastInGroup  = metadatapkg.KeyLastInGroup
	MetadataKeySenderName   = metadatapkg.KeySenderName
	MetadataKeyMaxWidth     = metadatapkg.KeyMaxWidth
)

// Bubble positions.
const (
	PositionTop      = capability.PositionTop
	PositionLeading  = capability.PositionLeading
	PositionTrailing = capability.PositionTrailing
	PositionBottom   = capability.PositionBottom
	PositionOverlay  = capability.PositionOverlay
)

// NewDefaultExtensions returns a container with every built-in processor and
// handler registered.
func NewDefaultExtensions(opts ExtensionsOptions, deps ExtensionDependencies) (*Container, error) {
	c := extensions.New(opts)
	if err := c.RegisterDefaults(deps); err != nil {
		return nil, err
	}
	return c, nil
}
