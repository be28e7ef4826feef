package ir

import "time"

// Instance is one execution of a candidate-gathering pass by a source.
type Instance struct {
	ID          Token         `json:"id"`
	Source      string        `json:"source"`
	BatchID     Token         `json:"batch_id"`
	Interrupted bool          `json:"interrupted"` // Pass was cancelled before finishing
	Duration    time.Duration `json:"duration"`    // Stored as REAL seconds
	Items       int           `json:"items"`       // Candidates produced
}

// Insertion records that a candidate was accepted by the user.
type Insertion struct {
	Order      int64  `json:"insert_order"` // Store-wide sequence, strictly increasing
	InstanceID Token  `json:"instance_id"`
	SortBy     string `json:"sort_by"`
}

// InsertionOrder maps a candidate's sort key to the sequence number of its
// most recent acceptance. Larger values are more recent.
type InsertionOrder map[string]int64

// SourceStats summarizes the recorded history of one source.
type SourceStats struct {
	Source      string        `json:"source"`
	Instances   int64         `json:"instances"`
	Interrupted int64         `json:"interrupted"`
	Inserted    int64         `json:"inserted"`
	AvgItems    float64       `json:"avg_items"`
	AvgDuration time.Duration `json:"avg_duration"`
	Q50Duration time.Duration `json:"q50_duration"`
	Q95Duration time.Duration `json:"q95_duration"`
	MaxDuration time.Duration `json:"max_duration"`
}
