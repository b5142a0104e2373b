package actuator

// scaleChannel converts value, normalized to [-1,1], to a microsecond pulse
// width using the channel's min/neutral/max calibration (spec.md §4.3 Step 5
// "scale_channel"):
//
//	value >= 0 -> pulse = value*(max-neutral) + neutral
//	value <  0 -> pulse = value*(neutral-min) + neutral
//
// then clamps to [min(min,max), max(min,max)] so inverted travel
// (min > max) still produces a bounded pulse (spec.md §3 invariants).
func scaleChannel(value float64, min, neutral, max int32) float64 {
	minF, neutralF, maxF := float64(min), float64(neutral), float64(max)

	var scaled float64
	if value >= 0 {
		scaled = value*(maxF-neutralF) + neutralF
	} else {
		scaled = value*(neutralF-minF) + neutralF
	}

	lo, hi := minF, maxF
	if lo > hi {
		lo, hi = hi, lo
	}
	if scaled > hi {
		scaled = hi
	}
	if scaled < lo {
		scaled = lo
	}
	return scaled
}
