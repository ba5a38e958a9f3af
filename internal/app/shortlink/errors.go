package shortlink

import "errors"

var (
	// ErrInvalidInput: the destination URL is blank or malformed. Caller's fault, never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound: the short code has no binding.
	ErrNotFound = errors.New("short code not found")
	// ErrStorage wraps any backend failure so callers can tell it apart from the two above.
	ErrStorage = errors.New("storage unavailable")
	// ErrCodeSpaceExhausted is returned when Shorten runs out of retry attempts.
	ErrCodeSpaceExhausted = errors.New("no free short code found")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsUnavailable reports infrastructure-side failures (storage down, retry budget spent).
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStorage) || errors.Is(err, ErrCodeSpaceExhausted)
}
