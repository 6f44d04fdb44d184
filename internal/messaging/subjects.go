package messaging

// Subject constants for the sentra message bus.
// Follow the pattern: {domain}.{action}.{resource}
const (
	// SubjectEventsRaw carries raw security events submitted for scoring.
	SubjectEventsRaw = "sentra.events.raw"

	// SubjectDecisionsCreated carries finished access decisions for
	// downstream Zero-Trust enforcement points.
	SubjectDecisionsCreated = "sentra.decisions.created"

	// SubjectAlertsDispatched carries dispatch results for audit consumers.
	SubjectAlertsDispatched = "sentra.alerts.dispatched"
)

// Queue group names for load-balanced consumers.
// Workers in the same queue group share messages (each processed once).
const (
	QueuePipelineWorkers = "sentra-pipeline-workers"
)
