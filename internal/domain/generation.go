package domain

import "time"

// Generation kinds stored in the cache.
const (
	KindPlan = "plan"
	KindDemo = "demo"
)

// Generation is a cached completion output for one idea.
type Generation struct {
	Key       string
	Kind      string
	Model     string
	Output    string
	CreatedAt time.Time
	TTL       int64
}
