package alarm

import "time"

// DataPoint is one period's Sum statistic.
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Sum       float64   `json:"sum"`
}

// Finding is a resource that recorded errors inside the window.
// ErrorPoints is never empty.
type Finding struct {
	ResourceID  string      `json:"resourceId"`
	ErrorPoints []DataPoint `json:"errorPoints"`
}

// ExtractErrors returns the points whose Sum is strictly positive, in their original order.
func ExtractErrors(points []DataPoint) []DataPoint {
	var errs []DataPoint
	for _, p := range points {
		if p.Sum > 0 {
			errs = append(errs, p)
		}
	}
	return errs
}
