package multiformat

import (
	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/oned/rss"
	"github.com/makiuchi-d/gozxing/qrcode"

	zxunwarp "github.com/ericlevine/zxunwarp"
)

// readerEntry builds a reader for one format. Readers are cheap and carry
// state between calls, so every decode builds fresh ones.
type readerEntry struct {
	format zxunwarp.Format
	build  func() gozxing.Reader
}

// readerOrder is the order formats are tried in: matrix codes first since
// their finder patterns are unambiguous, then the linear codes.
var readerOrder = []readerEntry{
	{zxunwarp.FormatQRCode, func() gozxing.Reader { return qrcode.NewQRCodeReader() }},
	{zxunwarp.FormatDataMatrix, func() gozxing.Reader { return datamatrix.NewDataMatrixReader() }},
	{zxunwarp.FormatAztec, func() gozxing.Reader { return aztec.NewAztecReader() }},
	{zxunwarp.FormatEAN13, func() gozxing.Reader { return oned.NewEAN13Reader() }},
	{zxunwarp.FormatUPCA, func() gozxing.Reader { return oned.NewUPCAReader() }},
	{zxunwarp.FormatEAN8, func() gozxing.Reader { return oned.NewEAN8Reader() }},
	{zxunwarp.FormatUPCE, func() gozxing.Reader { return oned.NewUPCEReader() }},
	{zxunwarp.FormatCode128, func() gozxing.Reader { return oned.NewCode128Reader() }},
	{zxunwarp.FormatCode39, func() gozxing.Reader { return oned.NewCode39Reader() }},
	{zxunwarp.FormatCode93, func() gozxing.Reader { return oned.NewCode93Reader() }},
	{zxunwarp.FormatCodabar, func() gozxing.Reader { return oned.NewCodaBarReader() }},
	{zxunwarp.FormatITF, func() gozxing.Reader { return oned.NewITFReader() }},
	{zxunwarp.FormatDataBar, func() gozxing.Reader { return rss.NewRSS14Reader() }},
}

// Supported lists the formats this back-end can decode.
var Supported = func() zxunwarp.Formats {
	var s zxunwarp.Formats
	for _, e := range readerOrder {
		s |= zxunwarp.Formats(e.format)
	}
	return s
}()

// buildReaders returns readers for the requested formats. The empty set
// means every supported format. Requested formats without a reader (PDF417,
// MaxiCode, DataBar Expanded) are skipped; the scanner rejects requests made
// up only of those.
func buildReaders(formats zxunwarp.Formats) []gozxing.Reader {
	var readers []gozxing.Reader
	for _, e := range readerOrder {
		if !formats.Accepts(e.format) {
			continue
		}
		// The EAN-13 reader also reports UPC-A symbols, converted afterwards.
		if e.format == zxunwarp.FormatUPCA && formats.Accepts(zxunwarp.FormatEAN13) {
			continue
		}
		readers = append(readers, e.build())
	}
	return readers
}

var toZXing = map[zxunwarp.Format]gozxing.BarcodeFormat{
	zxunwarp.FormatAztec:           gozxing.BarcodeFormat_AZTEC,
	zxunwarp.FormatCodabar:         gozxing.BarcodeFormat_CODABAR,
	zxunwarp.FormatCode39:          gozxing.BarcodeFormat_CODE_39,
	zxunwarp.FormatCode93:          gozxing.BarcodeFormat_CODE_93,
	zxunwarp.FormatCode128:         gozxing.BarcodeFormat_CODE_128,
	zxunwarp.FormatDataBar:         gozxing.BarcodeFormat_RSS_14,
	zxunwarp.FormatDataBarExpanded: gozxing.BarcodeFormat_RSS_EXPANDED,
	zxunwarp.FormatDataMatrix:      gozxing.BarcodeFormat_DATA_MATRIX,
	zxunwarp.FormatEAN8:            gozxing.BarcodeFormat_EAN_8,
	zxunwarp.FormatEAN13:           gozxing.BarcodeFormat_EAN_13,
	zxunwarp.FormatITF:             gozxing.BarcodeFormat_ITF,
	zxunwarp.FormatMaxiCode:        gozxing.BarcodeFormat_MAXICODE,
	zxunwarp.FormatPDF417:          gozxing.BarcodeFormat_PDF_417,
	zxunwarp.FormatQRCode:          gozxing.BarcodeFormat_QR_CODE,
	zxunwarp.FormatUPCA:            gozxing.BarcodeFormat_UPC_A,
	zxunwarp.FormatUPCE:            gozxing.BarcodeFormat_UPC_E,
}

func fromZXing(bf gozxing.BarcodeFormat) zxunwarp.Format {
	for f, z := range toZXing {
		if z == bf {
			return f
		}
	}
	return zxunwarp.FormatNone
}

// buildHints translates decode options into gozxing hints.
func buildHints(opts *zxunwarp.DecodeOptions) map[gozxing.DecodeHintType]interface{} {
	hints := map[gozxing.DecodeHintType]interface{}{}
	if opts.IsPure {
		hints[gozxing.DecodeHintType_PURE_BARCODE] = true
	}
	if opts.TryRotate {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	if !opts.Formats.Empty() {
		var formats []gozxing.BarcodeFormat
		for _, f := range opts.Formats.List() {
			if z, ok := toZXing[f]; ok {
				formats = append(formats, z)
			}
		}
		hints[gozxing.DecodeHintType_POSSIBLE_FORMATS] = formats
	}
	if opts.EANAddOnSymbol == zxunwarp.EANAddOnRequire {
		hints[gozxing.DecodeHintType_ALLOWED_EAN_EXTENSIONS] = []int{2, 5}
	}
	return hints
}
