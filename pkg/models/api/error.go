package api

// Error is the envelope returned on every failure. ErrorCode is one of the
// fixed taxonomy values; Details carries structured context such as the
// sufficient role list or the maximum payload size.
type Error struct {
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}
