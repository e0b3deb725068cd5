package domain

var (
	// ErrNoSources is returned when a discovery run has no configured directory to search.
	ErrNoSources = errString("no directory sources configured")
	ErrNotFound  = errString("not found")
)

type errString string

func (e errString) Error() string { return string(e) }
