package fraud

import "fmt"

// Weights is the active linear model parameter set. All fields apply to
// features normalized to [0,1]; Bias is unbounded. Weight sets are
// process-wide and swapped atomically, never mutated in place.
type Weights struct {
	TimeDelta      float64 `json:"timeDelta"`
	RequestSize    float64 `json:"requestSize"`
	SignatureCount float64 `json:"signatureCount"`
	DataComplexity float64 `json:"dataComplexity"`
	SourceEntropy  float64 `json:"sourceEntropy"`
	VelocityScore  float64 `json:"velocityScore"`
	GeoAnomaly     float64 `json:"geoAnomaly"`
	BehaviorScore  float64 `json:"behaviorScore"`
	Bias           float64 `json:"bias"`
}

// DefaultWeights returns the shipped model parameters. Weights are static
// and hot-swappable, not learned here.
func DefaultWeights() Weights {
	return Weights{
		TimeDelta:      0.6,
		RequestSize:    0.3,
		SignatureCount: -0.9,
		DataComplexity: 0.4,
		SourceEntropy:  1.2,
		VelocityScore:  1.6,
		GeoAnomaly:     0.8,
		BehaviorScore:  1.1,
		Bias:           -2.5,
	}
}

// apply returns a copy of w with the named overrides applied. Unknown names
// are rejected so a typo cannot silently drop a weight update.
func (w Weights) apply(overrides map[string]float64) (Weights, error) {
	for name, value := range overrides {
		switch name {
		case "timeDelta":
			w.TimeDelta = value
		case "requestSize":
			w.RequestSize = value
		case "signatureCount":
			w.SignatureCount = value
		case "dataComplexity":
			w.DataComplexity = value
		case "sourceEntropy":
			w.SourceEntropy = value
		case "velocityScore":
			w.VelocityScore = value
		case "geoAnomaly":
			w.GeoAnomaly = value
		case "behaviorScore":
			w.BehaviorScore = value
		case "bias":
			w.Bias = value
		default:
			return w, fmt.Errorf("unknown weight %q", name)
		}
	}
	return w, nil
}
