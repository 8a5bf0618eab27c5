package storage

// KeyResultProgress is current/target as a percentage clamped to [0,100].
// A non-positive target yields 0.
func KeyResultProgress(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return clampPercent(current / target * 100)
}

// PlanProgress is the unweighted mean of the key results' progress, 0 for none.
func PlanProgress(krs []KeyResult) float64 {
	if len(krs) == 0 {
		return 0
	}
	var sum float64
	for _, kr := range krs {
		sum += kr.Progress
	}
	return clampPercent(sum / float64(len(krs)))
}

func clampPercent(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
