package strategies

// Noop does nothing. Useful as a subscriber placeholder in tests.
type Noop struct {
	Base
}

func (Noop) Name() string { return "noop" }
