package response

// Resp is the envelope every endpoint answers with.
type Resp struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Details string      `json:"details,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func OK(msg string, data interface{}) Resp {
	return Resp{Success: true, Message: msg, Data: data}
}

// Fail builds a failure envelope; an empty msg falls back to the status text.
func Fail(status int, msg string) Resp {
	if msg == "" {
		msg = MessageFor(status)
	}
	return Resp{Success: false, Message: msg}
}
