package conversation

import "time"

// Pauser maps a nominal dramatic pause to the real delay. A zero result
// means present immediately.
type Pauser interface {
	Delay(nominal time.Duration) time.Duration
}

// ScaledPauser multiplies every pause by Scale; 0 collapses them.
type ScaledPauser struct {
	Scale float64
}

func (p ScaledPauser) Delay(nominal time.Duration) time.Duration {
	if p.Scale <= 0 {
		return 0
	}
	return time.Duration(float64(nominal) * p.Scale)
}

// Nominal pauses of the scripted branches.
const (
	pauseThinking = 2 * time.Second
	pauseReveal   = 3 * time.Second
)
