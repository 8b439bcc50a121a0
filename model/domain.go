package model

// Timing holds the fixed-step integration parameters of an engagement.
type Timing struct {
	DT           float64 `json:"dt"`            // seconds
	TotalTime    float64 `json:"total_time"`    // seconds
	HitThreshold float64 `json:"hit_threshold"` // metres
}

// DefaultTiming mirrors the defaults applied when a scenario leaves
// timing unset.
func DefaultTiming() Timing {
	return Timing{DT: 0.01, TotalTime: 60.0, HitThreshold: 5.0}
}
