package disk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/killown/flux/internal/thumbtype"
)

// On-disk artifact layout: fixed header followed by zstd-compressed NRGBA
// pixels. Raw pixel rows compress well and decode faster than re-encoding
// thumbnails as PNG on every read.
const (
	codecMagic   = "FXT1"
	codecVersion = 1

	maxPathLen   = math.MaxUint16
	maxFormatLen = math.MaxUint8
)

var errCorruptEntry = errors.New("disk: corrupt cache entry")

type artifactCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newArtifactCodec() (*artifactCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &artifactCodec{enc: enc, dec: dec}, nil
}

func (c *artifactCodec) encode(art *thumbtype.Artifact) ([]byte, error) {
	if art.Image == nil {
		return nil, errors.New("disk: artifact has no image")
	}
	bounds := art.Image.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.New("disk: artifact has empty bounds")
	}
	if len(art.Fingerprint.Path) > maxPathLen {
		return nil, fmt.Errorf("disk: path exceeds %d bytes", maxPathLen)
	}
	if len(art.SourceFormat) > maxFormatLen {
		return nil, fmt.Errorf("disk: format name exceeds %d bytes", maxFormatLen)
	}

	pix := packPixels(art.Image)

	buf := make([]byte, 0, 64+len(art.Fingerprint.Path)+len(art.SourceFormat))
	buf = append(buf, codecMagic...)
	buf = binary.BigEndian.AppendUint16(buf, codecVersion)
	buf = binary.BigEndian.AppendUint32(buf, uint32(width))
	buf = binary.BigEndian.AppendUint32(buf, uint32(height))
	buf = binary.BigEndian.AppendUint32(buf, uint32(art.TargetPx)) //nolint:gosec // target size validated positive upstream
	buf = binary.BigEndian.AppendUint64(buf, uint64(art.GeneratedAt.UnixNano()))
	buf = binary.BigEndian.AppendUint64(buf, uint64(art.Fingerprint.Size))
	buf = binary.BigEndian.AppendUint64(buf, uint64(art.Fingerprint.ModTime.UnixNano()))
	buf = append(buf, byte(len(art.SourceFormat)))
	buf = append(buf, art.SourceFormat...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(art.Fingerprint.Path)))
	buf = append(buf, art.Fingerprint.Path...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(pix))) //nolint:gosec // pixel buffer bounded by thumbnail dimensions

	return c.enc.EncodeAll(pix, buf), nil
}

func (c *artifactCodec) decode(data []byte) (*thumbtype.Artifact, error) {
	r := &byteParser{data: data}

	magic := r.bytes(len(codecMagic))
	if string(magic) != codecMagic {
		return nil, errCorruptEntry
	}
	if r.uint16() != codecVersion {
		return nil, errCorruptEntry
	}
	width := int(r.uint32())
	height := int(r.uint32())
	targetPx := int(r.uint32())
	generatedAt := int64(r.uint64()) //nolint:gosec // round-trips the encoded value
	fpSize := int64(r.uint64())      //nolint:gosec // round-trips the encoded value
	fpModTime := int64(r.uint64())   //nolint:gosec // round-trips the encoded value
	format := string(r.bytes(int(r.byte())))
	path := string(r.bytes(int(r.uint16())))
	pixLen := int(r.uint32())
	if r.failed {
		return nil, errCorruptEntry
	}
	if width <= 0 || height <= 0 || pixLen != width*height*4 {
		return nil, errCorruptEntry
	}

	pix, err := c.dec.DecodeAll(r.rest(), make([]byte, 0, pixLen))
	if err != nil || len(pix) != pixLen {
		return nil, errCorruptEntry
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, pix)
	return &thumbtype.Artifact{
		Image:        img,
		SourceFormat: format,
		Fingerprint: thumbtype.Fingerprint{
			Path:    path,
			Size:    fpSize,
			ModTime: time.Unix(0, fpModTime),
		},
		TargetPx:    targetPx,
		GeneratedAt: time.Unix(0, generatedAt),
	}, nil
}

// packPixels returns the image's pixels as tightly packed NRGBA rows.
func packPixels(img *image.NRGBA) []byte {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	rowLen := width * 4
	if bounds.Min == (image.Point{}) && img.Stride == rowLen && len(img.Pix) == rowLen*height {
		return img.Pix
	}
	pix := make([]byte, rowLen*height)
	for y := 0; y < height; y++ {
		srcOff := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		copy(pix[y*rowLen:(y+1)*rowLen], img.Pix[srcOff:srcOff+rowLen])
	}
	return pix
}

// byteParser reads big-endian fields, latching failure on short input.
type byteParser struct {
	data   []byte
	off    int
	failed bool
}

func (p *byteParser) bytes(n int) []byte {
	if p.failed || n < 0 || p.off+n > len(p.data) {
		p.failed = true
		return nil
	}
	b := p.data[p.off : p.off+n]
	p.off += n
	return b
}

func (p *byteParser) byte() byte {
	b := p.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (p *byteParser) uint16() uint16 {
	b := p.bytes(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (p *byteParser) uint32() uint32 {
	b := p.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (p *byteParser) uint64() uint64 {
	b := p.bytes(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (p *byteParser) rest() []byte {
	if p.failed {
		return nil
	}
	return p.data[p.off:]
}
