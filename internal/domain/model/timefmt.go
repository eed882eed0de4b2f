package model

import (
	"fmt"
	"math"
)

// FormatClock renders seconds as mm:ss, rounding to the nearest second.
// Non-finite input renders as "--:--"; negative input clamps to zero.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "--:--"
	}
	total := max(int(math.Round(seconds)), 0)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
