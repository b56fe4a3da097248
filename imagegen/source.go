package imagegen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxDimension bounds the longest side of a source image before it is
// sent to a provider.
const DefaultMaxDimension = 1536

const dataURIPrefix = "data:"

// providerFormats are the decoded formats both providers accept as-is.
// Anything else is re-encoded as JPEG before it leaves the process.
var providerFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"webp": true,
}

// SourceImage is a decoded, validated user photo ready for the providers.
type SourceImage struct {
	// Data is the raw image payload without any data URI marker.
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// SourceOptions bounds what ParseSourceImage accepts.
type SourceOptions struct {
	// MaxBytes rejects payloads larger than this after base64 decoding.
	// Zero disables the check.
	MaxBytes int

	// MaxDimension downscales images whose longest side exceeds it.
	// Zero disables downscaling.
	MaxDimension int
}

// ParseSourceImage strips the data URI marker from encoded, decodes the
// payload and checks that it is a real image. Bare base64 is accepted too.
func ParseSourceImage(encoded string, opts SourceOptions) (SourceImage, error) {
	payload, _ := splitDataURI(strings.TrimSpace(encoded))
	if payload == "" {
		return SourceImage{}, ErrEmptyImage
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return SourceImage{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return SourceImage{}, ErrEmptyImage
	}
	if opts.MaxBytes > 0 && len(data) > opts.MaxBytes {
		return SourceImage{}, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrInvalidImage, len(data), opts.MaxBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return SourceImage{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	// The declared marker is not trusted; the decoder's format wins.
	bounds := img.Bounds()
	src := SourceImage{
		Data:     data,
		MIMEType: "image/" + format,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}

	if opts.MaxDimension > 0 && max(src.Width, src.Height) > opts.MaxDimension {
		return downscale(img, opts.MaxDimension)
	}
	if !providerFormats[format] {
		return reencodeJPEG(img)
	}
	return src, nil
}

// DataURI re-attaches the marker so the image can travel back to a browser
// or to a provider that wants a URL.
func (s SourceImage) DataURI() string {
	return ToDataURI(s.Data, s.MIMEType)
}

// ToDataURI encodes raw image bytes as a data URI.
func ToDataURI(data []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// splitDataURI returns the payload and declared MIME type of a data URI.
// Input without a marker is returned unchanged with an empty MIME type.
func splitDataURI(s string) (payload, mimeType string) {
	if !strings.HasPrefix(s, dataURIPrefix) {
		return s, ""
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return "", ""
	}
	meta := s[len(dataURIPrefix):comma]
	mimeType, _, _ = strings.Cut(meta, ";")
	return s[comma+1:], strings.ToLower(mimeType)
}

func decodeBase64(payload string) ([]byte, error) {
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
}

// downscale shrinks img so its longest side equals maxDim and re-encodes it
// as JPEG.
func downscale(img image.Image, maxDim int) (SourceImage, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	scale := float64(maxDim) / float64(max(width, height))
	newWidth := max(1, int(float64(width)*scale))
	newHeight := max(1, int(float64(height)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return reencodeJPEG(dst)
}

// reencodeJPEG encodes img as a quality 90 JPEG.
func reencodeJPEG(img image.Image) (SourceImage, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return SourceImage{}, fmt.Errorf("imagegen: re-encode image: %w", err)
	}
	bounds := img.Bounds()
	return SourceImage{
		Data:     buf.Bytes(),
		MIMEType: "image/jpeg",
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}
