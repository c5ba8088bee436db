package models

// ProtocolResult is the outcome of one protocol probe.
type ProtocolResult struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
}

// ConnectivityResult reports a probe of both protocols. Overall is true only
// when both succeeded.
type ConnectivityResult struct {
	IMAP    ProtocolResult `json:"imap"`
	SMTP    ProtocolResult `json:"smtp"`
	Overall bool           `json:"overall"`
}
