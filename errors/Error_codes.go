package errors

import "fmt"

// ERR is the numeric code carried by every *Error.
// Codes are stable; never renumber an existing code.
type ERR int32

const (
	ERR_UNKNOWN             ERR = 0
	ERR_INVALID_ARGUMENT    ERR = 1
	ERR_THRESHOLD_EXCEEDED  ERR = 2
	ERR_NOT_FOUND           ERR = 3
	ERR_PROCESSING          ERR = 4
	ERR_CONFIGURATION       ERR = 5
	ERR_CONTEXT             ERR = 6
	ERR_CONTEXT_CANCELED    ERR = 7
	ERR_ERROR               ERR = 9
	ERR_STORAGE_UNAVAILABLE ERR = 59
	ERR_STORAGE_NOT_STARTED ERR = 60
	ERR_STORAGE_ERROR       ERR = 61
	ERR_ENCODING            ERR = 62
)

var ERR_name = map[int32]string{
	0:  "UNKNOWN",
	1:  "INVALID_ARGUMENT",
	2:  "THRESHOLD_EXCEEDED",
	3:  "NOT_FOUND",
	4:  "PROCESSING",
	5:  "CONFIGURATION",
	6:  "CONTEXT",
	7:  "CONTEXT_CANCELED",
	9:  "ERROR",
	59: "STORAGE_UNAVAILABLE",
	60: "STORAGE_NOT_STARTED",
	61: "STORAGE_ERROR",
	62: "ENCODING",
}

// Enum returns the symbolic name of the code.
func (x ERR) Enum() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return fmt.Sprintf("ERR(%d)", int32(x))
}

func (x ERR) String() string {
	return x.Enum()
}
