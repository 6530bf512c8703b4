package zxunwarp

import (
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ericlevine/zxunwarp/charset"
)

// SymbologyIdentifier returns the AIM symbology identifier for f. eci
// selects the modifier used when the payload carries ECI designators.
func SymbologyIdentifier(f Format, eci bool) string {
	switch f {
	case FormatQRCode:
		if eci {
			return "]Q2"
		}
		return "]Q1"
	case FormatDataMatrix:
		if eci {
			return "]d4"
		}
		return "]d1"
	case FormatAztec:
		if eci {
			return "]z3"
		}
		return "]z0"
	case FormatPDF417:
		return "]L2"
	case FormatMaxiCode:
		return "]U0"
	case FormatCode128:
		return "]C0"
	case FormatCode39:
		return "]A0"
	case FormatCode93:
		return "]G0"
	case FormatCodabar:
		return "]F0"
	case FormatITF:
		return "]I0"
	case FormatEAN8:
		return "]E4"
	case FormatEAN13, FormatUPCA, FormatUPCE:
		return "]E0"
	case FormatDataBar, FormatDataBarExpanded:
		return "]e0"
	default:
		return ""
	}
}

var asciiControlNames = [...]string{
	"NUL", "SOH", "STX", "ETX", "EOT", "ENQ", "ACK", "BEL",
	"BS", "HT", "LF", "VT", "FF", "CR", "SO", "SI",
	"DLE", "DC1", "DC2", "DC3", "DC4", "NAK", "SYN", "ETB",
	"CAN", "EM", "SUB", "ESC", "FS", "GS", "RS", "US",
}

// RenderText renders a decoded payload for the given mode. text is the
// human readable interpretation, raw the payload bytes (nil when the
// back-end does not expose them), eci the character set designator carried
// by the symbol (0 if none) and symbologyID the AIM identifier.
func RenderText(text string, raw []byte, eci int, symbologyID string, mode TextMode) string {
	if raw == nil {
		raw = []byte(text)
	}
	switch mode {
	case TextPlain:
		// Transcoded by ECI, or by guessed charset, with no decoration.
		return charset.Decode(raw, eci, false)
	case TextECI:
		return symbologyID + text
	case TextHex:
		return strings.ToUpper(spacedHex(raw))
	case TextEscaped:
		return escapeControls(text)
	default:
		return text
	}
}

func spacedHex(raw []byte) string {
	parts := make([]string, len(raw))
	for i, c := range raw {
		parts[i] = hex.EncodeToString([]byte{c})
	}
	return strings.Join(parts, " ")
}

func escapeControls(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < 0x20:
			b.WriteString("<" + asciiControlNames[r] + ">")
		case r == 0x7f:
			b.WriteString("<DEL>")
		case r == utf8.RuneError:
			b.WriteString("<?>")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DetectContentType classifies a decoded payload.
func DetectContentType(text string, raw []byte, gs1 bool) ContentType {
	if gs1 {
		return ContentGS1
	}
	if strings.HasPrefix(text, "[)>\x1e") {
		return ContentISO15434
	}
	if raw == nil {
		raw = []byte(text)
	}
	if len(raw) == 0 {
		return ContentText
	}
	if !utf8.Valid(raw) {
		if utf8.ValidString(text) && text != string(raw) {
			// The back-end transcoded a legacy charset into text.
			return ContentText
		}
		return ContentBinary
	}
	printable, other := 0, 0
	for _, r := range string(raw) {
		if unicode.IsPrint(r) || unicode.IsSpace(r) || r == 0x1d {
			printable++
		} else {
			other++
		}
	}
	switch {
	case other == 0:
		return ContentText
	case printable == 0:
		return ContentBinary
	default:
		return ContentMixed
	}
}
