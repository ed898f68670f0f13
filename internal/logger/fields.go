package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried on the context logger through the call chain.

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldRunID is the offline batch run ID
	FieldRunID = "run_id"

	// FieldRunKind is the offline job kind (embed, tag, hubs, ...)
	FieldRunKind = "run_kind"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldQuery is the normalized ranking query
	FieldQuery = "query"

	// FieldImageID is the image being processed
	FieldImageID = "image_id"

	// FieldSource is the image source identifier
	FieldSource = "source"
)

// Metric fields, attached per entry for aggregation.

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldSize is the response size in bytes
	FieldSize = "size"
)
