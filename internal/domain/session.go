package domain

type SessionID uint64

// Session is one live connection to a chain. Responses is closed by the engine
// when the session ends.
type Session struct {
	ID        SessionID
	Responses <-chan string
}

type OpenRequest struct {
	Specification ChainSpecification
	// Database is a previously exported engine database. Always empty here.
	Database string
	UserData any
}

type ReconnectState int32

const (
	ReconnectIdle ReconnectState = iota
	ReconnectClosing
	ReconnectOpening
	ReconnectResubscribing
)

func (s ReconnectState) String() string {
	switch s {
	case ReconnectClosing:
		return "closing"
	case ReconnectOpening:
		return "opening"
	case ReconnectResubscribing:
		return "resubscribing"
	default:
		return "idle"
	}
}
