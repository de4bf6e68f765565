package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// CoordinateError reports an encoded coordinate that could not be decoded.
type CoordinateError struct {
	Input string
	Field string
	Cause error
}

func (e *CoordinateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("coordinate %q: bad %s field: %v", e.Input, e.Field, e.Cause)
	}
	return fmt.Sprintf("coordinate %q: bad %s field", e.Input, e.Field)
}

func (e *CoordinateError) Unwrap() error { return e.Cause }

// DecodeDMS converts a SIAR catalog coordinate string into decimal degrees.
//
// The catalog encodes coordinates as a run of digits (degrees, minutes, then
// thousandths of a second) terminated by a hemisphere letter, e.g.
// "37165123N" = 37°16'5.123"N. Longitudes carry a 3-digit degree field unless
// the string starts with "00", in which case the provider pads the degree
// field to 2 digits. That quirk decides which digits are minutes vs seconds,
// so it is reproduced here verbatim rather than normalized.
func DecodeDMS(coord string, isLongitude bool) (float64, error) {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(coord), `"'`))
	if s == "" {
		return 0, &CoordinateError{Input: coord, Field: "hemisphere"}
	}

	hemi := s[len(s)-1]
	sign := 1.0
	switch hemi {
	case 'N', 'n', 'E', 'e':
	case 'S', 's', 'W', 'w':
		sign = -1.0
	default:
		return 0, &CoordinateError{Input: coord, Field: "hemisphere"}
	}

	digits := strings.TrimSpace(s[:len(s)-1])

	degWidth := 2
	if isLongitude && !strings.HasPrefix(digits, "00") {
		degWidth = 3
	}

	if len(digits) < degWidth+2 {
		return 0, &CoordinateError{Input: coord, Field: "minutes"}
	}

	deg, err := strconv.Atoi(digits[:degWidth])
	if err != nil {
		return 0, &CoordinateError{Input: coord, Field: "degrees", Cause: err}
	}

	min, err := strconv.Atoi(digits[degWidth : degWidth+2])
	if err != nil {
		return 0, &CoordinateError{Input: coord, Field: "minutes", Cause: err}
	}

	// The tail is an integer count of thousandths of a second; it may be
	// absent entirely for coordinates that land on a whole minute.
	secs := 0.0
	if rest := digits[degWidth+2:]; rest != "" {
		milli, err := strconv.Atoi(rest)
		if err != nil {
			return 0, &CoordinateError{Input: coord, Field: "seconds", Cause: err}
		}
		secs = float64(milli) / 1000.0
	}

	return sign * (float64(deg) + float64(min)/60.0 + secs/3600.0), nil
}
