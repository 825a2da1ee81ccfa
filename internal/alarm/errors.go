package alarm

import "errors"

var (
	// ErrParse indicates a malformed alarm event or timestamp. Fatal for the run.
	ErrParse = errors.New("cannot parse alarm event")
	// ErrDiscovery indicates the resource listing failed. Fatal for the run.
	ErrDiscovery = errors.New("cannot discover resources")
	// ErrMetricFetch indicates a single resource's metric query failed.
	// The resource is skipped and the run continues.
	ErrMetricFetch = errors.New("cannot fetch metric data")
)
