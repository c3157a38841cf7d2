package nspire

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ardnew/nspire/pkg"
)

// Image is a framebuffer capture. Data is owned by the caller and holds
// Width*Height*BPP/8 packed pixel bytes.
type Image struct {
	Width  uint16
	Height uint16
	BPP    uint8
	Data   []byte
}

// Decode converts the capture into 8-bit-per-channel pixels.
func (i *Image) Decode() (*Pixels, error) {
	return DecodeFramebuffer(int(i.Width), int(i.Height), i.BPP, i.Data)
}

// Format is the channel layout of decoded pixels.
type Format uint8

// Pixel formats.
const (
	Luma8 Format = iota // One luminance byte per pixel
	RGB8                // Interleaved red, green, blue bytes
)

// Channels returns the number of bytes per pixel.
func (f Format) Channels() int {
	if f == RGB8 {
		return 3
	}
	return 1
}

// String returns "luma8" or "rgb8".
func (f Format) String() string {
	if f == RGB8 {
		return "rgb8"
	}
	return "luma8"
}

// Pixels is a decoded framebuffer.
type Pixels struct {
	Width  int
	Height int
	Format Format
	Pix    []byte // Row-major, Width*Height*Format.Channels() bytes
}

// 16-bit framebuffer channel layout, least significant bits first.
const (
	redBits   = 5
	greenBits = 6
	blueBits  = 5

	redMax   = 1<<redBits - 1
	greenMax = 1<<greenBits - 1
	blueMax  = 1<<blueBits - 1
)

// scale rescales v from [0, limit] to [0, 255], rounding to nearest.
func scale(v, limit uint32) byte {
	return byte((v*255 + limit/2) / limit)
}

// DecodeFramebuffer converts a raw framebuffer into 8-bit-per-channel
// pixels.
//
// An 8 bpp buffer is grayscale and is returned unchanged. A 16 bpp buffer
// holds little-endian words with red in bits 0-4, green in bits 5-10 and
// blue in bits 11-15; each channel is rescaled to 0-255 with rounding.
// Any other depth fails with [pkg.KindPixelDepth] wrapping a
// [pkg.DepthError]. Dimensions must lie in [0, 65535].
func DecodeFramebuffer(width, height int, bpp uint8, data []byte) (*Pixels, error) {
	if width < 0 || height < 0 || width > math.MaxUint16 || height > math.MaxUint16 {
		return nil, decodeError(pkg.KindInvalidInput,
			fmt.Errorf("invalid dimensions %dx%d", width, height))
	}
	n := width * height

	switch bpp {
	case 8:
		if len(data) != n {
			return nil, lengthError(len(data), n)
		}
		return &Pixels{
			Width:  width,
			Height: height,
			Format: Luma8,
			Pix:    append([]byte(nil), data...),
		}, nil

	case 16:
		if len(data) != 2*n {
			return nil, lengthError(len(data), 2*n)
		}
		pix := make([]byte, 3*n)
		for i := range n {
			v := uint32(data[2*i]) | uint32(data[2*i+1])<<8
			pix[3*i] = scale(v&redMax, redMax)
			pix[3*i+1] = scale(v>>redBits&greenMax, greenMax)
			pix[3*i+2] = scale(v>>(redBits+greenBits)&blueMax, blueMax)
		}
		return &Pixels{Width: width, Height: height, Format: RGB8, Pix: pix}, nil
	}

	return nil, decodeError(pkg.KindPixelDepth, pkg.DepthError(bpp))
}

func decodeError(kind pkg.Kind, cause error) error {
	pkg.LogDebug(pkg.ComponentImage, "framebuffer decode failed", "error", cause)
	return &pkg.Error{Kind: kind, Op: "decode", Err: cause}
}

func lengthError(got, want int) error {
	return decodeError(pkg.KindInvalidInput,
		fmt.Errorf("framebuffer length %d, want %d", got, want))
}

// Image returns the pixels as an *image.Gray (Luma8) or *image.NRGBA (RGB8).
func (p *Pixels) Image() image.Image {
	r := image.Rect(0, 0, p.Width, p.Height)
	if p.Format == Luma8 {
		return &image.Gray{Pix: append([]byte(nil), p.Pix...), Stride: p.Width, Rect: r}
	}
	img := image.NewNRGBA(r)
	for i := range p.Width * p.Height {
		copy(img.Pix[4*i:4*i+3], p.Pix[3*i:3*i+3])
		img.Pix[4*i+3] = 0xff
	}
	return img
}

// Resize scales the pixels to width x height, keeping the format. A zero
// width or height preserves the aspect ratio.
func (p *Pixels) Resize(width, height int) *Pixels {
	dst := imaging.Resize(p.Image(), width, height, imaging.Lanczos)
	b := dst.Bounds()
	out := &Pixels{Width: b.Dx(), Height: b.Dy(), Format: p.Format}
	n := out.Width * out.Height
	out.Pix = make([]byte, n*p.Format.Channels())
	for i := range n {
		if p.Format == Luma8 {
			out.Pix[i] = dst.Pix[4*i]
		} else {
			copy(out.Pix[3*i:3*i+3], dst.Pix[4*i:4*i+3])
		}
	}
	return out
}
