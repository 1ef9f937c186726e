package provenance

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
)

const copyrightKeyword = "Copyright"

var (
	pngMagic = []byte("\x89PNG\r\n\x1a\n")

	// ErrNotPNG is returned when the input does not start with a PNG header chunk.
	ErrNotPNG = errors.New("provenance: not a PNG image")
)

// EmbedPNG inserts an iTXt Copyright chunk carrying the signature directly
// after IHDR. Pixel data and every other chunk are copied unchanged.
func (e *Embedder) EmbedPNG(png []byte) ([]byte, error) {
	ihdrEnd, err := ihdrEnd(png)
	if err != nil {
		return nil, err
	}

	// iTXt: keyword NUL, compression flag, compression method,
	// language tag NUL, translated keyword NUL, text
	var data bytes.Buffer
	data.WriteString(copyrightKeyword)
	data.Write([]byte{0, 0, 0, 0, 0})
	data.WriteString(e.signature())

	out := make([]byte, 0, len(png)+data.Len()+12)
	out = append(out, png[:ihdrEnd]...)
	out = appendChunk(out, "iTXt", data.Bytes())
	out = append(out, png[ihdrEnd:]...)
	return out, nil
}

// EmbedPNG stamps png with DefaultSignature.
func EmbedPNG(png []byte) ([]byte, error) {
	return (*Embedder)(nil).EmbedPNG(png)
}

// PNGSignature returns the text of the first uncompressed iTXt Copyright
// chunk, if any.
func PNGSignature(png []byte) (string, bool) {
	if !bytes.HasPrefix(png, pngMagic) {
		return "", false
	}
	for off := len(pngMagic); off+12 <= len(png); {
		n := int(binary.BigEndian.Uint32(png[off:]))
		typ := string(png[off+4 : off+8])
		if off+12+n > len(png) {
			return "", false
		}
		body := png[off+8 : off+8+n]
		if typ == "iTXt" {
			if text, ok := parseITXt(body); ok {
				return text, true
			}
		}
		if typ == "IEND" {
			break
		}
		off += 12 + n
	}
	return "", false
}

func parseITXt(body []byte) (string, bool) {
	kw, rest, ok := bytes.Cut(body, []byte{0})
	if !ok || string(kw) != copyrightKeyword || len(rest) < 2 || rest[0] != 0 {
		return "", false
	}
	rest = rest[2:]
	// language tag, translated keyword
	for i := 0; i < 2; i++ {
		_, rest, ok = bytes.Cut(rest, []byte{0})
		if !ok {
			return "", false
		}
	}
	return string(rest), true
}

func ihdrEnd(png []byte) (int, error) {
	if !bytes.HasPrefix(png, pngMagic) || len(png) < len(pngMagic)+8 {
		return 0, ErrNotPNG
	}
	off := len(pngMagic)
	n := int(binary.BigEndian.Uint32(png[off:]))
	if string(png[off+4:off+8]) != "IHDR" || off+12+n > len(png) {
		return 0, ErrNotPNG
	}
	return off + 12 + n, nil
}

func appendChunk(dst []byte, typ string, data []byte) []byte {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(len(data)))
	copy(hdr[4:], typ)
	dst = append(dst, hdr[:]...)
	dst = append(dst, data...)

	crc := crc32.NewIEEE()
	crc.Write(hdr[4:])
	crc.Write(data)
	return binary.BigEndian.AppendUint32(dst, crc.Sum32())
}
