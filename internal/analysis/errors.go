package analysis

import "errors"

// Sentinel error kinds. Handlers match with errors.Is to pick an HTTP
// status; the wrapped message is what reaches the caller verbatim.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrDataUnavailable     = errors.New("weather data unavailable")
	ErrInsufficientData    = errors.New("insufficient historical data")
	ErrModelTrainingFailed = errors.New("model training failed")
)

// Error pairs a sentinel kind with a user-facing message. The message
// is returned as-is from Error(), so API responses stay clean while
// errors.Is still matches the kind.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Is(target error) bool { return target == e.kind }

// NewError builds a typed error of the given sentinel kind.
func NewError(kind error, msg string) error {
	return &Error{kind: kind, msg: msg}
}
