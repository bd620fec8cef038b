//go:build !ocr

package ocr

import "errors"

// ErrOCRNotEnabled is returned when recognition is requested but OCR
// support was not compiled in. Rebuild with -tags ocr to enable it; this
// requires a system Tesseract installation.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// NewEngine reports that OCR support is not compiled in.
func NewEngine(settings Settings) (Engine, error) {
	return nil, ErrOCRNotEnabled
}
