package profile

// Label returns one Direction per sample.
//
// Each sample is compared with the one before it, not with the first sample,
// so slow drift never accumulates into an edge. Index 0 is always None.
//
//	delta >  threshold  -> Falling
//	delta < -threshold  -> Rising
//	otherwise           -> None
func Label(samples []Sample, threshold float64) []Direction {
	labels := make([]Direction, len(samples))
	if len(samples) == 0 {
		return labels
	}

	last := samples[0].Scalar
	for i := 1; i < len(samples); i++ {
		labels[i] = direction(samples[i].Scalar-last, threshold)
		last = samples[i].Scalar
	}
	return labels
}

// Classify returns only the Rising and Falling steps of the profile, in
// traversal order.
func Classify(samples []Sample, threshold float64) []EdgeEvent {
	var events []EdgeEvent
	for i := 1; i < len(samples); i++ {
		delta := samples[i].Scalar - samples[i-1].Scalar
		dir := direction(delta, threshold)
		if dir == None {
			continue
		}
		events = append(events, EdgeEvent{
			Index:     i,
			Position:  samples[i].Position,
			Direction: dir,
			Delta:     delta,
		})
	}
	return events
}

func direction(delta, threshold float64) Direction {
	switch {
	case delta > threshold:
		return Falling
	case delta < -threshold:
		return Rising
	default:
		return None
	}
}
