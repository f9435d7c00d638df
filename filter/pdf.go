package filter

import (
	"context"
	"regexp"
)

// pdfVolatile matches the PDF and XMP tokens a publisher's PDF server
// rewrites on every download.
var pdfVolatile = []struct {
	re   *regexp.Regexp
	repl []byte
}{
	{regexp.MustCompile(`/CreationDate\s*\([^)]*\)`), []byte("/CreationDate()")},
	{regexp.MustCompile(`/ModDate\s*\([^)]*\)`), []byte("/ModDate()")},
	{regexp.MustCompile(`/ID\s*\[\s*<[0-9A-Fa-f]*>\s*<[0-9A-Fa-f]*>\s*\]`), []byte("/ID[]")},
	{regexp.MustCompile(`<xmp:ModifyDate>[^<]*</xmp:ModifyDate>`), []byte("<xmp:ModifyDate/>")},
	{regexp.MustCompile(`<xmp:MetadataDate>[^<]*</xmp:MetadataDate>`), []byte("<xmp:MetadataDate/>")},
	{regexp.MustCompile(`<xmpMM:InstanceID>[^<]*</xmpMM:InstanceID>`), []byte("<xmpMM:InstanceID/>")},
}

// PDFTokenFilter blanks creation and modification dates, trailer IDs and
// XMP instance IDs in a raw PDF byte stream.
type PDFTokenFilter struct {
	// Extra patterns, removed outright.
	Extra []*regexp.Regexp
}

// Apply implements Filter.
func (f PDFTokenFilter) Apply(_ context.Context, in []byte) ([]byte, error) {
	out := in
	for _, v := range pdfVolatile {
		out = v.re.ReplaceAll(out, v.repl)
	}
	for _, re := range f.Extra {
		out = re.ReplaceAll(out, nil)
	}
	return out, nil
}

var _ Filter = PDFTokenFilter{}
