package shortlink

import (
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidURL = fmt.Errorf("%w: invalid url", ErrInvalidInput)

const maxURLLength = 2048

// URLValidator checks a destination before any code is generated.
type URLValidator func(raw string) error

// RequireURL is the default validator: the destination must be non-blank and free of
// control characters (they would end up in the Location header). Anything else is stored
// verbatim.
func RequireURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: destination url is required", ErrInvalidInput)
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < 0x20 || raw[i] == 0x7f {
			return ErrInvalidURL
		}
	}
	return nil
}

// ValidateURL is the strict validator enabled by STRICT_URLS:
// - everything RequireURL checks
// - scheme must be http/https
// - host must be non-empty
// - at most 2048 bytes
func ValidateURL(raw string) error {
	if err := RequireURL(raw); err != nil {
		return err
	}
	if len(raw) > maxURLLength {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	if strings.TrimSpace(u.Host) == "" {
		return ErrInvalidURL
	}
	return nil
}

// Paths served next to /{code}; a generated code equal to one of them would be shadowed.
var reservedCodes = map[string]struct{}{
	"api":      {},
	"healthz":  {},
	"encurtar": {},
	"metrics":  {},
	"favicon":  {},
}

func IsReserved(code string) bool {
	_, ok := reservedCodes[strings.ToLower(code)]
	return ok
}
