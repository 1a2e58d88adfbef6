package profile

import "time"

const (
	MinAge = 3
	MaxAge = 18

	defaultAvatar   = "default"
	defaultProgress = "{}"
)

// Profile is a child profile owned by exactly one guardian account. The
// owner id is the partition key, so ownership is part of its address.
type Profile struct {
	ID            string
	OwnerID       string
	Name          string
	Age           int
	Grade         string
	Avatar        string
	LearningGoals string
	CreatedAt     time.Time
	LastActivity  *time.Time
	Progress      string
	IsActive      bool
}

// Draft is the input to Create. Age is left untyped so callers can pass a
// decoded JSON value straight through; it is coerced during validation.
type Draft struct {
	Name          string
	Age           any
	Grade         string
	Avatar        string
	LearningGoals string
}

// Delta is a partial update keyed by wire field name. Only the updatable
// fields are applied; any other key is ignored.
type Delta map[string]any

// updatable lists the fields a client may change after creation.
var updatable = []string{"name", "age", "grade", "avatar", "learning_goals", "progress"}
