package charset

// guesser tracks which of UTF-8, ISO-8859-1 and Shift_JIS a byte sequence
// can still be, along with the statistics used to break ties.
type guesser struct {
	utf8, iso, sjis bool

	utf8Pending int
	utf8Multi   int

	isoHighOther int

	sjisPending       int
	sjisKatakana      int
	sjisKatakanaRun   int
	sjisDoubleRun     int
	sjisMaxKatakana   int
	sjisMaxDoubleByte int
}

func (g *guesser) feedUTF8(v int) {
	switch {
	case g.utf8Pending > 0:
		if v&0x80 == 0 {
			g.utf8 = false
		} else {
			g.utf8Pending--
		}
	case v&0x80 == 0:
	case v&0x40 == 0:
		g.utf8 = false
	case v&0x20 == 0:
		g.utf8Pending = 1
		g.utf8Multi++
	case v&0x10 == 0:
		g.utf8Pending = 2
		g.utf8Multi++
	case v&0x08 == 0:
		g.utf8Pending = 3
		g.utf8Multi++
	default:
		g.utf8 = false
	}
}

func (g *guesser) feedISO(v int) {
	if v > 0x7F && v < 0xA0 {
		g.iso = false
	} else if v > 0x9F && (v < 0xC0 || v == 0xD7 || v == 0xF7) {
		g.isoHighOther++
	}
}

func (g *guesser) feedSJIS(v int) {
	switch {
	case g.sjisPending > 0:
		if v < 0x40 || v == 0x7F || v > 0xFC {
			g.sjis = false
		} else {
			g.sjisPending--
		}
	case v == 0x80 || v == 0xA0 || v > 0xEF:
		g.sjis = false
	case v > 0xA0 && v < 0xE0:
		g.sjisKatakana++
		g.sjisDoubleRun = 0
		g.sjisKatakanaRun++
		g.sjisMaxKatakana = max(g.sjisMaxKatakana, g.sjisKatakanaRun)
	case v > 0x7F:
		g.sjisPending++
		g.sjisKatakanaRun = 0
		g.sjisDoubleRun++
		g.sjisMaxDoubleByte = max(g.sjisMaxDoubleByte, g.sjisDoubleRun)
	default:
		g.sjisKatakanaRun = 0
		g.sjisDoubleRun = 0
	}
}

// Guess picks the most plausible character set for data, following the
// heuristics of ZXing's StringUtils.guessEncoding.
func Guess(data []byte) *ECI {
	if len(data) > 2 && ((data[0] == 0xFE && data[1] == 0xFF) || (data[0] == 0xFF && data[1] == 0xFE)) {
		return ECIUTF16BE
	}
	utf8BOM := len(data) > 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF

	g := guesser{utf8: true, iso: true, sjis: true}
	for i := 0; i < len(data) && (g.utf8 || g.iso || g.sjis); i++ {
		v := int(data[i])
		if g.utf8 {
			g.feedUTF8(v)
		}
		if g.iso {
			g.feedISO(v)
		}
		if g.sjis {
			g.feedSJIS(v)
		}
	}
	if g.utf8Pending > 0 {
		g.utf8 = false
	}
	if g.sjisPending > 0 {
		g.sjis = false
	}

	switch {
	case g.utf8 && (utf8BOM || g.utf8Multi > 0):
		return ECIUTF8
	case g.sjis && (g.sjisMaxKatakana >= 3 || g.sjisMaxDoubleByte >= 3):
		return ECISJIS
	case g.iso && g.sjis:
		if (g.sjisMaxKatakana == 2 && g.sjisKatakana == 2) || g.isoHighOther*10 >= len(data) {
			return ECISJIS
		}
		return ECIISO8859_1
	case g.iso:
		return ECIISO8859_1
	case g.sjis:
		return ECISJIS
	default:
		return ECIUTF8
	}
}
