// Package rating defines the trust-rating observation that feeds graph
// construction and reads rating histories from headerless CSV dumps.
package rating

// Record is one parsed trust rating: Source rated Target with Rating at Time
// (seconds since the Unix epoch). The order of records in a history is
// chronological and must be preserved by consumers.
type Record struct {
	Source int
	Target int
	Rating int
	Time   int64
}
