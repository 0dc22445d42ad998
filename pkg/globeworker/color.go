package globeworker

import "strconv"

// ResolveColor converts "#rgb" or "#rrggbb" (the '#' is optional, digits are
// case-insensitive) to an RGB triple. The second return is false for anything else.
func ResolveColor(hex string) (RGB, bool) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	for i := 0; i < len(hex); i++ {
		if !isHexDigit(hex[i]) {
			return RGB{}, false
		}
	}

	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return RGB{}, false
	}

	var c [3]uint8
	for i := range c {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return RGB{}, false
		}
		c[i] = uint8(v)
	}
	return RGB{R: c[0], G: c[1], B: c[2]}, true
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
