package observability

// Metric name prefixes
const (
	MetricPrefix = "raffler"
)

// Metric names
const (
	// Raffle metrics
	EntriesTotal     = MetricPrefix + ".entries_total"
	SettlementsTotal = MetricPrefix + ".settlements_total"
	PoolBalance      = MetricPrefix + ".pool.balance"

	// Oracle metrics
	OracleRequestsTotal     = MetricPrefix + ".oracle.requests_total"
	OracleFulfillmentsTotal = MetricPrefix + ".oracle.fulfillments_total"

	// NATS metrics
	EventsPublishedTotal = MetricPrefix + ".nats.events_published_total"

	// Database metrics
	DatabaseQueriesTotal  = MetricPrefix + ".database.queries_total"
	DatabaseQueryDuration = MetricPrefix + ".database.query_duration"
)

// Label keys
const (
	LabelEventType = "event_type"

	// Database labels
	LabelRepository = "repository"
	LabelMethod     = "method"
)
