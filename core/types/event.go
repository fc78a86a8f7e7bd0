package types

// Event is the flat, replayable record of a single state transition. Ordered
// sequences of these are all an observer needs to rebuild a projection.
type Event struct {
	Sequence   uint64            `json:"sequence,omitempty"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
