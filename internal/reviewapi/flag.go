package reviewapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Flag is a boolean that travels as 1/0 and accepts any of the encodings the
// front-end has used: true/false, numbers, "on"/"off" and friends, or null.
type Flag bool

// MarshalJSON encodes the flag as 1 or 0.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// UnmarshalJSON coerces the accepted encodings to a boolean.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = false
		return nil
	case bytes.Equal(data, []byte("true")):
		*f = true
		return nil
	case bytes.Equal(data, []byte("false")):
		*f = false
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseFlag(s)
		if err != nil {
			return err
		}
		*f = Flag(v)
		return nil
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return &FlagError{Value: string(data)}
		}
		*f = n != 0
		return nil
	}
}

// ParseFlag interprets form-style boolean strings.
func ParseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes", "y":
		return true, nil
	case "0", "false", "off", "no", "n", "":
		return false, nil
	default:
		return false, &FlagError{Value: strconv.Quote(s)}
	}
}

// FlagError reports a value that cannot be coerced to a boolean.
type FlagError struct {
	Value string
}

func (e *FlagError) Error() string {
	return fmt.Sprintf("recommend: cannot coerce %s to boolean", e.Value)
}
