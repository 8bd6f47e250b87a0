package observability

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"raffler/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the raffler service
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	entriesCounter            metric.Int64Counter
	settlementsCounter        metric.Int64Counter
	poolBalanceGauge          metric.Int64UpDownCounter
	oracleRequestsCounter     metric.Int64Counter
	oracleFulfillmentsCounter metric.Int64Counter
	eventsPublishedCounter    metric.Int64Counter
	databaseQueriesCounter    metric.Int64Counter
	databaseQueryDurationHist metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Println("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Println("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	// Create resource with service information
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	// Create appropriate exporter based on config
	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Println("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.Printf("Using OTLP metric exporter: %s", mp.config.OTelOTLPEndpoint)

	case "none":
		log.Println("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	// Create meter provider with periodic reader
	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)

	// Set as global meter provider
	otel.SetMeterProvider(mp.meterProvider)

	// Get meter for creating instruments
	mp.meter = mp.meterProvider.Meter("raffler")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Println("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.entriesCounter, err = mp.meter.Int64Counter(
		EntriesTotal,
		metric.WithDescription("Total number of raffle entries accepted"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create entries counter: %w", err)
	}

	mp.settlementsCounter, err = mp.meter.Int64Counter(
		SettlementsTotal,
		metric.WithDescription("Total number of settled raffle rounds"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlements counter: %w", err)
	}

	// UpDownCounter for gauge-like behavior: entries add, payouts subtract
	mp.poolBalanceGauge, err = mp.meter.Int64UpDownCounter(
		PoolBalance,
		metric.WithDescription("Current raffle pool balance"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create pool balance gauge: %w", err)
	}

	mp.oracleRequestsCounter, err = mp.meter.Int64Counter(
		OracleRequestsTotal,
		metric.WithDescription("Total number of randomness requests published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create oracle requests counter: %w", err)
	}

	mp.oracleFulfillmentsCounter, err = mp.meter.Int64Counter(
		OracleFulfillmentsTotal,
		metric.WithDescription("Total number of oracle fulfillments received"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create oracle fulfillments counter: %w", err)
	}

	mp.eventsPublishedCounter, err = mp.meter.Int64Counter(
		EventsPublishedTotal,
		metric.WithDescription("Total number of domain events published to NATS"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create events published counter: %w", err)
	}

	mp.databaseQueriesCounter, err = mp.meter.Int64Counter(
		DatabaseQueriesTotal,
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create database queries counter: %w", err)
	}

	mp.databaseQueryDurationHist, err = mp.meter.Float64Histogram(
		DatabaseQueryDuration,
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create database query duration histogram: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordEntry records an accepted raffle entry
func (mp *MetricsProvider) RecordEntry() {
	if !mp.isEnabled() {
		return
	}

	mp.entriesCounter.Add(context.Background(), 1)
}

// RecordSettlement records a settled round
func (mp *MetricsProvider) RecordSettlement() {
	if !mp.isEnabled() {
		return
	}

	mp.settlementsCounter.Add(context.Background(), 1)
}

// UpdatePoolBalance adjusts the pool balance gauge (positive for entries,
// negative for payouts)
func (mp *MetricsProvider) UpdatePoolBalance(delta int64) {
	if !mp.isEnabled() {
		return
	}

	mp.poolBalanceGauge.Add(context.Background(), delta)
}

// RecordOracleRequest records a randomness request being published
func (mp *MetricsProvider) RecordOracleRequest() {
	if !mp.isEnabled() {
		return
	}

	mp.oracleRequestsCounter.Add(context.Background(), 1)
}

// RecordOracleFulfillment records an oracle fulfillment being received
func (mp *MetricsProvider) RecordOracleFulfillment() {
	if !mp.isEnabled() {
		return
	}

	mp.oracleFulfillmentsCounter.Add(context.Background(), 1)
}

// RecordEventPublished records a domain event being published
func (mp *MetricsProvider) RecordEventPublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.eventsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
		),
	)
}

// RecordDatabaseQuery records a database query with duration
func (mp *MetricsProvider) RecordDatabaseQuery(repository, method string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelRepository, repository),
		attribute.String(LabelMethod, method),
	)

	mp.databaseQueriesCounter.Add(context.Background(), 1, attrs)
	mp.databaseQueryDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// MeasureDatabaseQuery returns a function to measure database query duration
// Usage:
//
//	defer mp.MeasureDatabaseQuery("account", "GetBalance")()
func (mp *MetricsProvider) MeasureDatabaseQuery(repository, method string) func() {
	start := time.Now()
	return func() {
		mp.RecordDatabaseQuery(repository, method, time.Since(start))
	}
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.config != nil && mp.config.OTelEnabled
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once

	// noopMetrics is served until InitializeGlobalMetrics runs, so callers
	// never have to nil-check
	noopMetrics = &MetricsProvider{}
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider. Always non-nil; records
// are dropped until the provider is initialized.
func GetMetrics() *MetricsProvider {
	if globalMetrics == nil {
		return noopMetrics
	}
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
