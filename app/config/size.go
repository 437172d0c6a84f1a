package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// ByteSize is an amount of bytes, which is parsed from human-readable values
// like "4MiB", "512 kB" or "1048576".
type ByteSize int64

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ByteSize) UnmarshalText(text []byte) error {
	n, err := humanize.ParseBytes(string(text))
	if err != nil {
		return fmt.Errorf("invalid byte size '%s': %w", text, err)
	}
	if n == 0 {
		return errors.New("byte size must be greater than 0")
	}
	if n > math.MaxInt64 {
		return fmt.Errorf("byte size '%s' is too large", text)
	}
	*s = ByteSize(n)

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s ByteSize) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s ByteSize) String() string {
	return humanize.IBytes(uint64(max(s, 0)))
}
