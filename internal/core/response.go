package core

import "time"

// Response is the sole shape every adapter and the arbitration engine
// produce. Data's schema is defined per DataType (see internal/provider/schema)
// rather than encoded in the type system, matching the provider corpus's
// heterogeneous field sets.
type Response struct {
	Provider   string
	Asset      Asset
	DataType   DataType
	Data       map[string]any
	Timestamp  time.Time
	IsValid    bool
	IsFresh    bool
	Confidence float64
	Metadata   map[string]any
}

// ArbitrationProvider is the literal provider name the engine stamps on
// responses it produces itself (merges).
const ArbitrationProvider = "arbitration_engine"
