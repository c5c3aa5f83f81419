package domain

// AccessMode selects the credentials a backend call runs with
type AccessMode int

const (
	// AccessNone runs the call without credentials (public access only)
	AccessNone AccessMode = iota
	// AccessSession runs the call on behalf of the session in Scope.Token
	AccessSession
	// AccessElevated bypasses object-level permissions
	AccessElevated
)

func (m AccessMode) String() string {
	switch m {
	case AccessSession:
		return "session"
	case AccessElevated:
		return "elevated"
	default:
		return "none"
	}
}

// Scope is the access scope of a single backend call
type Scope struct {
	Mode  AccessMode
	Token string
}
