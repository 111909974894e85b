package vault

// State is the lifecycle state of a Session.
type State int

const (
	// NoLogin: no backend session.
	NoLogin State = iota
	// WaitInit: logged in, no vault exists yet.
	WaitInit
	// Logged: logged in, vault locked.
	Logged
	// Unlocked: vault decrypted in memory.
	Unlocked
)

func (s State) String() string {
	switch s {
	case NoLogin:
		return "NO_LOGIN"
	case WaitInit:
		return "WAIT_INIT"
	case Logged:
		return "LOGGED"
	case Unlocked:
		return "UNLOCKED"
	default:
		return "UNKNOWN"
	}
}
