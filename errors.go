package zxunwarp

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by the single-symbol read functions when no
	// barcode is found in the image.
	ErrNotFound = errors.New("barcode not found")

	// ErrInvalidOptions is returned when decode options are malformed.
	ErrInvalidOptions = errors.New("invalid decode options")

	// ErrInvalidImage is returned when a pixel buffer does not describe a
	// usable image.
	ErrInvalidImage = errors.New("invalid image")

	// ErrUnknownPolicy is returned for a strategy policy the scanner does not
	// know.
	ErrUnknownPolicy = errors.New("unknown strategy policy")

	// ErrUnsupportedFormat is returned when decode options ask only for
	// formats that none of the selected back-ends can decode.
	ErrUnsupportedFormat = errors.New("format not supported by any back-end")

	// ErrNoBackend is returned when a read needs a back-end that has not been
	// registered with the scanner.
	ErrNoBackend = errors.New("no decode back-end registered")
)

// BackendFault describes a failure raised inside a decode back-end, either as
// a returned error or as a recovered panic. During a search it is absorbed by
// the dispatcher and only reported to the logger and observer.
type BackendFault struct {
	Backend string
	// Variant is the warp variant index being probed, or -1 outside a search.
	Variant int
	Cause   error
}

func (e *BackendFault) Error() string {
	if e.Variant < 0 {
		return fmt.Sprintf("backend %s: %v", e.Backend, e.Cause)
	}
	return fmt.Sprintf("backend %s (variant %d): %v", e.Backend, e.Variant, e.Cause)
}

func (e *BackendFault) Unwrap() error { return e.Cause }
