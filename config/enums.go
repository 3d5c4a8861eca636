package config

import (
	"fmt"
	"strings"
)

// Specification of glyph shaper to use for layout.
// ENUM(harfbuzz, bitmap)
type ShaperKind int

const (
	ShaperKindHarfbuzz ShaperKind = iota
	ShaperKindBitmap
)

var shaperKindNames = []string{"harfbuzz", "bitmap"}

// ShaperKindNames returns list of possible string values.
func ShaperKindNames() []string {
	return append([]string(nil), shaperKindNames...)
}

func (k ShaperKind) String() string {
	if k >= 0 && int(k) < len(shaperKindNames) {
		return shaperKindNames[k]
	}
	return fmt.Sprintf("ShaperKind(%d)", int(k))
}

// ParseShaperKind converts string to ShaperKind.
func ParseShaperKind(name string) (ShaperKind, error) {
	for i, n := range shaperKindNames {
		if strings.EqualFold(n, name) {
			return ShaperKind(i), nil
		}
	}
	return ShaperKind(0), fmt.Errorf("%s is not a valid ShaperKind, try [%s]", name, strings.Join(shaperKindNames, ", "))
}

func (k ShaperKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ShaperKind) UnmarshalText(text []byte) error {
	v, err := ParseShaperKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
