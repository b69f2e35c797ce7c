package model

// SessionFilter selects sessions for list queries.
type SessionFilter struct {
	UserID string
	Status []Status
	Limit  int
	Offset int
	Sort   string // column name, "-" prefix for descending
}

// RecordFilter selects verification records for list queries.
type RecordFilter struct {
	UserID    string
	SessionID string
	Status    []Status
	Limit     int
	Offset    int
	Sort      string
}
