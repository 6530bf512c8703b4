package zxunwarp

import "time"

// Observer receives search events. Implementations must be safe for
// concurrent use when a Scanner is shared between goroutines.
type Observer interface {
	// VariantProbed is called once per corrected image handed to the
	// dispatcher.
	VariantProbed(variant int)

	// BackendAttempt is called after a back-end returned without fault.
	BackendAttempt(backend string, found bool)

	// BackendFault is called when a back-end failed or panicked.
	BackendFault(backend string)

	// SearchFinished is called at the end of every search.
	SearchFinished(policy StrategyPolicy, found bool, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) VariantProbed(int)                                  {}
func (nopObserver) BackendAttempt(string, bool)                        {}
func (nopObserver) BackendFault(string)                                {}
func (nopObserver) SearchFinished(StrategyPolicy, bool, time.Duration) {}
