package sentinel

var _ error = Error("")

// Error is an immutable error backed by a string. Because it is a comparable
// value type, errors.Is matches it through wrapped chains with ==.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
