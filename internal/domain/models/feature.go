package models

import "time"

// FeatureVector is the ordered indicator summary for one bar. Names and Values
// are parallel slices in a fixed computation order so that a vector can be fed
// positionally into a trained model.
type FeatureVector struct {
	Symbol    string
	Timestamp time.Time
	Names     []string
	Values    []float64
	// Close carries the bar close the vector was derived from; the
	// backtester and label builder need it without re-joining on timestamp.
	Close float64
}

// Get returns the named feature value, or 0 and false when absent.
func (v *FeatureVector) Get(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i], true
		}
	}
	return 0, false
}
