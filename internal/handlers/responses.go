package handlers

// ErrorResponse is the standard error body for all handlers
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// KeyDefaults are operator-level API keys applied when a request carries
// no key headers. Per-request keys always win.
type KeyDefaults struct {
	Gemini string
	OpenAI string
}

// BasicResponse is a minimal status/message body
type BasicResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
