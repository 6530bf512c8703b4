package charset

import (
	"golang.org/x/text/transform"
)

// Decode converts payload bytes to UTF-8. A positive eci selects the
// character set explicitly; kanji marks QR Kanji-mode payloads, which are
// always Shift_JIS. Otherwise the character set is guessed. Bytes that
// cannot be converted are returned unchanged.
func Decode(data []byte, eci int, kanji bool) string {
	var cs *ECI
	switch {
	case eci > 0:
		if e, err := LookupECI(eci); err == nil {
			cs = e
		}
	case kanji:
		cs = ECISJIS
	}
	if cs == nil {
		cs = Guess(data)
	}
	if cs == ECIUTF8 || cs == ECIASCII {
		return string(data)
	}
	decoded, _, err := transform.Bytes(cs.Encoding.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}
