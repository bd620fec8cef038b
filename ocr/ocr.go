//go:build ocr

package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Client wraps Tesseract for page recognition. It is not safe for
// concurrent use; the pipeline runs pages sequentially.
type Client struct {
	client *gosseract.Client
}

// NewEngine creates the Tesseract-backed engine configured for the given
// settings: the language pair, single-block segmentation, and preserved
// inter-word spaces.
func NewEngine(settings Settings) (Engine, error) {
	c := gosseract.NewClient()
	if err := c.SetLanguage(strings.Split(settings.Languages, "+")...); err != nil {
		c.Close()
		return nil, fmt.Errorf("setting ocr languages %q: %w", settings.Languages, err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		c.Close()
		return nil, fmt.Errorf("setting ocr segmentation mode: %w", err)
	}
	if err := c.SetVariable("preserve_interword_spaces", "1"); err != nil {
		c.Close()
		return nil, fmt.Errorf("setting ocr variables: %w", err)
	}
	return &Client{client: c}, nil
}

// Recognize performs OCR on encoded image data and returns the trimmed
// recognized text.
func (c *Client) Recognize(pngData []byte) (string, error) {
	if err := c.client.SetImageFromBytes(pngData); err != nil {
		return "", fmt.Errorf("setting ocr image: %w", err)
	}
	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Close releases the Tesseract resources.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
