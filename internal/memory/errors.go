package memory

import "errors"

// Sentinel errors for the retrieval pipeline.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConfig indicates a missing or invalid required setting.
	// Fatal: startup aborts instead of running half-configured.
	ErrConfig = errors.New("configuration error")

	// ErrValidation indicates rejected caller input, e.g. an empty query.
	// Recoverable: the interactive loop re-prompts.
	ErrValidation = errors.New("validation error")

	// ErrGateway indicates an embedding or chat completion call failure.
	ErrGateway = errors.New("gateway error")

	// ErrStore indicates the vector store was unavailable or rejected an
	// operation. Batch ingestion counts these per record and continues.
	ErrStore = errors.New("store error")

	// ErrRetrieval wraps a gateway or store failure during a query.
	ErrRetrieval = errors.New("retrieval error")

	// ErrTimeout indicates an external call exceeded its deadline.
	ErrTimeout = errors.New("timeout")
)
