// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package osext

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"errors"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression is the compression format of a stream.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionZstd
	CompressionXz
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionBzip2:
		return "bzip2"
	case CompressionZstd:
		return "zstd"
	case CompressionXz:
		return "xz"
	default:
		return "none"
	}
}

// ErrUnsupportedCompression is returned by Decompress when the stream is
// compressed with a format that can't be decoded.
var ErrUnsupportedCompression = errors.New("unsupported compression")

var magic = []struct {
	c     Compression
	match func(hdr []byte) bool
}{
	// compression method byte is always 8 (deflate).
	{CompressionGzip, prefix(0x1f, 0x8b, 0x08)},
	{CompressionBzip2, isBzip2},
	{CompressionZstd, prefix(0x28, 0xb5, 0x2f, 0xfd)},
	{CompressionXz, prefix(0xfd, '7', 'z', 'X', 'Z', 0x00)},
}

func prefix(sig ...byte) func([]byte) bool {
	return func(hdr []byte) bool { return bytes.HasPrefix(hdr, sig) }
}

var (
	bzBlockMagic = []byte{0x31, 0x41, 0x59, 0x26, 0x53, 0x59} // "1AY&SY", pi
	bzEndMagic   = []byte{0x17, 0x72, 0x45, 0x38, 0x50, 0x90} // sqrt(pi), empty stream
)

// isBzip2 matches "BZh", the block size digit, and the block or the end of
// stream magic.  A tar file whose first entry name starts with "BZh" must
// not match.
func isBzip2(hdr []byte) bool {
	if len(hdr) < 10 || !bytes.HasPrefix(hdr, []byte("BZh")) || hdr[3] < '1' || hdr[3] > '9' {
		return false
	}
	return bytes.Equal(hdr[4:10], bzBlockMagic) || bytes.Equal(hdr[4:10], bzEndMagic)
}

// Detect peeks at the beginning of the buffered reader and returns the
// detected compression.  It does not advance the reader.
func Detect(br *bufio.Reader) Compression {
	hdr, _ := br.Peek(10) // short reads are fine, matching is done on what we've got.
	for _, m := range magic {
		if m.match(hdr) {
			return m.c
		}
	}
	return CompressionNone
}

// Decompress returns a reader that transparently decompresses r, if r is
// compressed with gzip, bzip2 or zstd.  Uncompressed streams are returned
// as is.  The returned ReadCloser must be closed by the caller, closing it
// does not close r.
func Decompress(r io.Reader) (io.ReadCloser, Compression, error) {
	br := bufio.NewReader(r)
	c := Detect(br)
	switch c {
	case CompressionNone:
		return io.NopCloser(br), c, nil
	case CompressionGzip:
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, c, err
		}
		return gr, c, nil
	case CompressionBzip2:
		return io.NopCloser(bzip2.NewReader(br)), c, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, c, err
		}
		return zr.IOReadCloser(), c, nil
	default:
		return nil, c, ErrUnsupportedCompression
	}
}
