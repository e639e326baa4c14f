package service

import "strings"

// Sentinel MAC values for requests that carry no usable hardware
// address. Both round-trip through NormalizeMAC unchanged.
const (
	MACUndefined = "UN:DE:FI:NE:D_"
	MACEmpty     = "EM:PT:YM:AC:__"
)

// NormalizeMAC canonicalizes a hardware address to uppercase
// colon-separated pairs. The empty string maps to the MACEmpty
// sentinel. The function is idempotent.
func NormalizeMAC(mac string) string {
	if mac == "" {
		return MACEmpty
	}

	m := strings.ToUpper(mac)

	// Strip common delimiters, then re-group into pairs.
	m = strings.Map(func(r rune) rune {
		switch r {
		case ':', '-', '.', ' ':
			return -1
		}
		return r
	}, m)

	var b strings.Builder
	for i := 0; i < len(m); i += 2 {
		b.WriteByte(m[i])
		if i+1 < len(m) {
			b.WriteByte(m[i+1])
		}
		if i+2 < len(m) {
			b.WriteByte(':')
		}
	}
	return b.String()
}

// NormalizeMACPtr handles the absent-field case: a nil pointer maps
// to the MACUndefined sentinel.
func NormalizeMACPtr(mac *string) string {
	if mac == nil {
		return MACUndefined
	}
	return NormalizeMAC(*mac)
}
