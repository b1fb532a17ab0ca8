// Package bytesize parses human-readable byte sizes such as "4Ki", "64KiB"
// or "4096". It backs the --block-size flag and the block_size config key.
package bytesize

import (
	"fmt"
	"strconv"
	"strings"
)

// ByteSize is a size in bytes that unmarshals from human-readable strings.
type ByteSize uint64

// Size constants.
const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
)

var units = map[string]ByteSize{
	"":    B,
	"b":   B,
	"k":   KB,
	"kb":  KB,
	"m":   MB,
	"mb":  MB,
	"g":   GB,
	"gb":  GB,
	"ki":  KiB,
	"kib": KiB,
	"mi":  MiB,
	"mib": MiB,
	"gi":  GiB,
	"gib": GiB,
}

// Parse converts a string like "4Ki", "64KiB", "1MB" or "4096" to a ByteSize.
func Parse(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	// Split the trailing unit off the numeric prefix.
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if c >= '0' && c <= '9' {
			break
		}
		i--
	}
	numStr := strings.TrimSpace(s[:i])
	unit := strings.ToLower(strings.TrimSpace(s[i:]))

	mult, ok := units[unit]
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit %q", s[i:])
	}

	num, err := strconv.ParseUint(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	return ByteSize(num) * mult, nil
}

// UnmarshalText implements encoding.TextUnmarshaler so ByteSize fields work
// with mapstructure and yaml decoding.
func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// String renders the size with the largest exact binary unit.
func (b ByteSize) String() string {
	switch {
	case b >= GiB && b%GiB == 0:
		return fmt.Sprintf("%dGi", uint64(b/GiB))
	case b >= MiB && b%MiB == 0:
		return fmt.Sprintf("%dMi", uint64(b/MiB))
	case b >= KiB && b%KiB == 0:
		return fmt.Sprintf("%dKi", uint64(b/KiB))
	default:
		return strconv.FormatUint(uint64(b), 10)
	}
}
