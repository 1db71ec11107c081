package entities

import "errors"

var (
	// ErrIndexCorruption is signaled by a storage backend whose persisted data is unreadable.
	ErrIndexCorruption = errors.New("index corruption")
	// ErrIndexConnectivity is signaled by a storage backend that cannot be reached or opened.
	ErrIndexConnectivity = errors.New("index connectivity fault")
	// ErrIndexFatal is returned when an add still fails after the recovery cycle.
	ErrIndexFatal = errors.New("index fatal")
	// ErrRetrievalUnavailable means the embedding or search backend could not serve a query.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrAnswerGeneration wraps failures of the answer generation capability.
	ErrAnswerGeneration = errors.New("answer generation failed")
	// ErrBackendUnavailable is returned by remote adapters on transport errors and 5xx/429 replies.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrUnsupportedFormat is returned by extractors for file types they cannot read.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// IsIndexFault reports whether err is a storage fault that the one-shot recovery handles.
func IsIndexFault(err error) bool {
	return errors.Is(err, ErrIndexCorruption) || errors.Is(err, ErrIndexConnectivity)
}
