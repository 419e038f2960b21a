package extract

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw" // For high-quality resizing
	_ "golang.org/x/image/webp"
)

// ImageRenderer turns fetched image bytes into the base64 JPEG payload
// sent to the captioning model. It is the server-side equivalent of
// drawing the image on an offscreen canvas and reading it back.
type ImageRenderer struct {
	maxWidth  int
	maxHeight int
	quality   int // JPEG quality (1-100)
}

// ImageRendererConfig configures the renderer.
type ImageRendererConfig struct {
	MaxWidth  int `json:"max_width"`
	MaxHeight int `json:"max_height"`
	Quality   int `json:"quality"`
}

// DefaultImageRendererConfig returns default configuration.
func DefaultImageRendererConfig() *ImageRendererConfig {
	return &ImageRendererConfig{
		MaxWidth:  2048,
		MaxHeight: 2048,
		Quality:   85,
	}
}

// NewImageRenderer creates a new image renderer.
func NewImageRenderer(cfg *ImageRendererConfig) *ImageRenderer {
	if cfg == nil {
		cfg = DefaultImageRendererConfig()
	}
	return &ImageRenderer{
		maxWidth:  cfg.MaxWidth,
		maxHeight: cfg.MaxHeight,
		quality:   cfg.Quality,
	}
}

// RenderedImage contains the encoded payload and its dimensions.
type RenderedImage struct {
	Base64  string `json:"base64"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Resized bool   `json:"resized"`
}

// Render decodes image bytes, downscales oversized images and re-encodes
// to base64 JPEG.
func (r *ImageRenderer) Render(data []byte) (*RenderedImage, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ExtractError{
			Type:    ErrImageLoad,
			Message: fmt.Sprintf("failed to decode image: %v", err),
		}
	}

	bounds := img.Bounds()
	result := &RenderedImage{}

	if bounds.Dx() > r.maxWidth || bounds.Dy() > r.maxHeight {
		img = r.resize(img, r.maxWidth, r.maxHeight)
		bounds = img.Bounds()
		result.Resized = true
	}
	result.Width = bounds.Dx()
	result.Height = bounds.Dy()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.quality}); err != nil {
		return nil, &ExtractError{
			Type:    ErrImageLoad,
			Message: fmt.Sprintf("failed to encode image: %v", err),
		}
	}

	result.Base64 = base64.StdEncoding.EncodeToString(buf.Bytes())
	return result, nil
}

// resize resizes an image while maintaining aspect ratio.
func (r *ImageRenderer) resize(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	ratio := float64(width) / float64(height)
	newWidth := maxWidth
	newHeight := int(float64(maxWidth) / ratio)

	if newHeight > maxHeight {
		newHeight = maxHeight
		newWidth = int(float64(maxHeight) * ratio)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)

	return dst
}

// Dimensions returns the dimensions of an encoded image without a full decode.
func (r *ImageRenderer) Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
