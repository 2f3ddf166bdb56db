package domain

import "time"

// EntryKind is the type of a journal entry.
type EntryKind string

const (
	EntryMotionReported    EntryKind = "motion_reported"
	EntryMotionDropped     EntryKind = "motion_dropped"
	EntryDoorActuated      EntryKind = "door_actuated"
	EntryConnectionChanged EntryKind = "connection_changed"
)

func (k EntryKind) IsValid() bool {
	switch k {
	case EntryMotionReported, EntryMotionDropped, EntryDoorActuated, EntryConnectionChanged:
		return true
	}
	return false
}

// Entry is one record in the event journal.
type Entry struct {
	ID        string    `json:"id"`
	Kind      EntryKind `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	MessageID *int      `json:"message_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter holds query parameters for journal listing.
type ListFilter struct {
	Kind  *EntryKind
	Since *time.Time
	Limit int
}

// Status is the runtime snapshot served by the status endpoint.
type Status struct {
	Connection    ConnState `json:"connection"`
	QueueDepth    int       `json:"queue_depth"`
	QueueCapacity int       `json:"queue_capacity"`
	MotionSent    uint64    `json:"motion_sent"`
	MotionDropped uint64    `json:"motion_dropped"`
	DoorActuated  uint64    `json:"door_actuated"`
	StartedAt     time.Time `json:"started_at"`
}
