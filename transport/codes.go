package transport

// Websocket close codes.
const (
	CloseNormal           = 1000
	CloseGoingAway        = 1001
	CloseAbnormal         = 1006
	CloseVersionNotFound  = 4019
	CloseSessionElsewhere = 4020
	CloseClientBanned     = 4021
	CloseAccessRevoked    = 4022
	CloseTerminated       = 4023
)

var fatalCloseReasons = map[int]string{
	CloseVersionNotFound:  "interactive project version not found",
	CloseSessionElsewhere: "session was opened elsewhere",
	CloseClientBanned:     "client is banned from this channel",
	CloseAccessRevoked:    "access to the channel was revoked",
	CloseTerminated:       "session was terminated by the service",
}

// IsFatal reports whether a close code means reconnecting cannot help.
func IsFatal(code int) bool {
	_, ok := fatalCloseReasons[code]
	return ok
}

// Describe returns a human readable explanation of a close code.
func Describe(code int, reason string) string {
	if msg, ok := fatalCloseReasons[code]; ok {
		return msg
	}
	if reason != "" {
		return reason
	}
	switch code {
	case CloseNormal:
		return "connection closed"
	case CloseGoingAway:
		return "server going away"
	case CloseAbnormal:
		return "connection lost"
	}
	return "connection closed unexpectedly"
}
