package ingest

import "github.com/m-a-x-v/buildings-dashboard/internal/aggregate"

// Status is the discriminated load status exposed to consumers.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is what the rendering layer sees: a status, the latest snapshot if
// any, a human-readable error, and whether a fresh fetch is still in flight
// behind whatever is currently displayed.
type State struct {
	Status     Status              `json:"status"`
	Snapshot   *aggregate.Snapshot `json:"snapshot,omitempty"`
	Err        string              `json:"error,omitempty"`
	Refreshing bool                `json:"isRefreshing"`
	RunID      string              `json:"runId,omitempty"`
}
