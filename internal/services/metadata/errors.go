package metadata

import "errors"

var (
	// ErrMissingInput is returned when a path, record or output directory is absent.
	ErrMissingInput = errors.New("missing input")
	// ErrUnsupportedFormat is returned for extensions outside SupportedFormats.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrVerification is returned when the readback after a write yields no records.
	ErrVerification = errors.New("metadata verification failed")
	// ErrInvalidValue is returned for a path or tag value containing a line break.
	ErrInvalidValue = errors.New("invalid metadata value")
)
