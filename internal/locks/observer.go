package locks

// Observer receives lock-table transition counts for metrics. All
// methods must be cheap and non-blocking; they are invoked outside the
// manager's mutex but on the calling goroutine.
type Observer interface {
	Acquired(kind Kind)
	Released(kind Kind)
	Rejected()
}

type noopObserver struct{}

func (noopObserver) Acquired(Kind) {}
func (noopObserver) Released(Kind) {}
func (noopObserver) Rejected()     {}
