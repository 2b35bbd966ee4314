package document

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"doc-analyzer/internal/shared/telemetry"
)

const (
	MimePDF  = "application/pdf"
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeTIFF = "image/tiff"

	// MaxBytes is the largest document the asynchronous analysis API accepts.
	MaxBytes = 500 << 20
	// MaxPages is the page limit for asynchronous analysis of PDF and TIFF files.
	MaxPages = 3000
)

var (
	ErrEmpty       = errors.New("document is empty")
	ErrTooLarge    = errors.New("document exceeds size limit")
	ErrUnsupported = errors.New("unsupported document type")
)

// Info summarizes a local document before it is uploaded.
type Info struct {
	Name     string
	MimeType string
	Size     int64
	// Pages is only known for PDFs the local parser can read; 0 otherwise.
	Pages int
}

// Inspect detects the document type and rejects inputs the analysis service
// would refuse, so a run fails before anything is uploaded.
func Inspect(name string, data []byte) (Info, error) {
	info := Info{Name: name, Size: int64(len(data))}
	if len(data) == 0 {
		return info, ErrEmpty
	}
	if len(data) > MaxBytes {
		return info, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	info.MimeType = detectMime(name, data)
	switch info.MimeType {
	case MimePDF:
		pages, err := countPDFPages(data)
		if err != nil {
			// the service reads PDFs the local parser rejects, e.g. trailing bytes after %%EOF
			telemetry.Warn("document.page_count_failed", map[string]any{"name": name, "error": err})
			break
		}
		if pages > MaxPages {
			return info, fmt.Errorf("%w: %d pages", ErrTooLarge, pages)
		}
		info.Pages = pages
	case MimePNG, MimeJPEG, MimeTIFF:
	default:
		return info, fmt.Errorf("%w: %s", ErrUnsupported, info.MimeType)
	}
	return info, nil
}

// pdfSniffLen is how far into the file the %PDF- header may start.
const pdfSniffLen = 1024

func detectMime(name string, data []byte) string {
	if bytes.Contains(data[:min(len(data), pdfSniffLen)], []byte("%PDF-")) {
		return MimePDF
	}
	if bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*")) {
		return MimeTIFF
	}
	detected := strings.Split(http.DetectContentType(data), ";")[0]
	if detected != "application/octet-stream" {
		return detected
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MimePDF
	case ".tif", ".tiff":
		return MimeTIFF
	default:
		return detected
	}
}

func countPDFPages(data []byte) (pages int, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}
