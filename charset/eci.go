// Package charset converts decoded symbol payloads to UTF-8.
package charset

import (
	"errors"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnknownECI indicates an ECI designator without a known character set.
var ErrUnknownECI = errors.New("charset: unknown ECI designator")

// ECI is a character set Extended Channel Interpretation.
type ECI struct {
	// Values lists every designator that selects this character set.
	Values   []int
	Name     string
	Encoding encoding.Encoding
}

var (
	ECICp437      = &ECI{[]int{0, 2}, "Cp437", charmap.CodePage437}
	ECIISO8859_1  = &ECI{[]int{1, 3}, "ISO-8859-1", charmap.ISO8859_1}
	ECIISO8859_2  = &ECI{[]int{4}, "ISO-8859-2", charmap.ISO8859_2}
	ECIISO8859_3  = &ECI{[]int{5}, "ISO-8859-3", charmap.ISO8859_3}
	ECIISO8859_4  = &ECI{[]int{6}, "ISO-8859-4", charmap.ISO8859_4}
	ECIISO8859_5  = &ECI{[]int{7}, "ISO-8859-5", charmap.ISO8859_5}
	ECIISO8859_6  = &ECI{[]int{8}, "ISO-8859-6", charmap.ISO8859_6}
	ECIISO8859_7  = &ECI{[]int{9}, "ISO-8859-7", charmap.ISO8859_7}
	ECIISO8859_8  = &ECI{[]int{10}, "ISO-8859-8", charmap.ISO8859_8}
	ECIISO8859_9  = &ECI{[]int{11}, "ISO-8859-9", charmap.ISO8859_9}
	ECIISO8859_10 = &ECI{[]int{12}, "ISO-8859-10", charmap.ISO8859_10}
	ECIISO8859_11 = &ECI{[]int{13}, "ISO-8859-11", charmap.Windows874}
	ECIISO8859_13 = &ECI{[]int{15}, "ISO-8859-13", charmap.ISO8859_13}
	ECIISO8859_14 = &ECI{[]int{16}, "ISO-8859-14", charmap.ISO8859_14}
	ECIISO8859_15 = &ECI{[]int{17}, "ISO-8859-15", charmap.ISO8859_15}
	ECIISO8859_16 = &ECI{[]int{18}, "ISO-8859-16", charmap.ISO8859_16}
	ECISJIS       = &ECI{[]int{20}, "Shift_JIS", japanese.ShiftJIS}
	ECICp1250     = &ECI{[]int{21}, "windows-1250", charmap.Windows1250}
	ECICp1251     = &ECI{[]int{22}, "windows-1251", charmap.Windows1251}
	ECICp1252     = &ECI{[]int{23}, "windows-1252", charmap.Windows1252}
	ECICp1256     = &ECI{[]int{24}, "windows-1256", charmap.Windows1256}
	ECIUTF16BE    = &ECI{[]int{25}, "UTF-16BE", unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)}
	ECIUTF8       = &ECI{[]int{26}, "UTF-8", unicode.UTF8}
	ECIASCII      = &ECI{[]int{27, 170}, "US-ASCII", unicode.UTF8}
	ECIBig5       = &ECI{[]int{28}, "Big5", traditionalchinese.Big5}
	ECIGB18030    = &ECI{[]int{29}, "GB18030", simplifiedchinese.GB18030}
	ECIEUCKR      = &ECI{[]int{30}, "EUC-KR", korean.EUCKR}
)

var byValue = func() map[int]*ECI {
	m := map[int]*ECI{}
	for _, eci := range []*ECI{
		ECICp437, ECIISO8859_1, ECIISO8859_2, ECIISO8859_3, ECIISO8859_4,
		ECIISO8859_5, ECIISO8859_6, ECIISO8859_7, ECIISO8859_8, ECIISO8859_9,
		ECIISO8859_10, ECIISO8859_11, ECIISO8859_13, ECIISO8859_14,
		ECIISO8859_15, ECIISO8859_16, ECISJIS, ECICp1250, ECICp1251,
		ECICp1252, ECICp1256, ECIUTF16BE, ECIUTF8, ECIASCII, ECIBig5,
		ECIGB18030, ECIEUCKR,
	} {
		for _, v := range eci.Values {
			m[v] = eci
		}
	}
	return m
}()

// LookupECI returns the character set selected by an ECI designator.
func LookupECI(value int) (*ECI, error) {
	if eci, ok := byValue[value]; ok {
		return eci, nil
	}
	return nil, ErrUnknownECI
}
