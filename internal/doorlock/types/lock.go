package types

// StatusResponse is the body of GET /status. true means locked.
type StatusResponse struct {
	Status bool `json:"status"`
}

// SetStatusRequest is the body of POST /status. Status is a pointer so a
// missing field can be told apart from false.
type SetStatusRequest struct {
	Status *bool `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
	Deleted *int64 `json:"deleted,omitempty"`
}

type HistoryEntry struct {
	ID           int64  `json:"id"`
	Status       string `json:"status"` // "LOCKED" | "UNLOCKED"
	UTCTimestamp string `json:"utcTimestamp"`
	JSTTimestamp string `json:"jstTimestamp"`
}

type HistoryResponse struct {
	History []HistoryEntry `json:"history"`
}

type LogResponse struct {
	Log []string `json:"log"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
