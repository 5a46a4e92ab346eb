// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encode

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrIdxFormat is returned for malformed IDX data.
var ErrIdxFormat = errors.New("bad idx format")

// IdxUint8 is the IDX type code of unsigned bytes, the only one supported.
const IdxUint8 = 0x08

// IdxFile is a decoded IDX file. The first dimension counts items.
type IdxFile struct {
	Dims []int
	Data []byte
}

// NItems returns the number of items.
func (ix *IdxFile) NItems() int {
	if len(ix.Dims) == 0 {
		return 0
	}
	return ix.Dims[0]
}

// ItemDims returns the dimensions of one item.
func (ix *IdxFile) ItemDims() []int {
	if len(ix.Dims) < 2 {
		return nil
	}
	return ix.Dims[1:]
}

// ItemSize returns the number of bytes in one item.
func (ix *IdxFile) ItemSize() int {
	n := 1
	for _, d := range ix.ItemDims() {
		n *= d
	}
	return n
}

// Item returns the bytes of item i.
func (ix *IdxFile) Item(i int) ([]byte, error) {
	if i < 0 || i >= ix.NItems() {
		return nil, fmt.Errorf("%w: item %d of %d", ErrIdxFormat, i, ix.NItems())
	}
	sz := ix.ItemSize()
	return ix.Data[i*sz : (i+1)*sz], nil
}

// ReadIdx decodes an IDX stream.
func ReadIdx(r io.Reader) (*IdxFile, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrIdxFormat, err)
	}
	if hdr[0] != 0 || hdr[1] != 0 {
		return nil, fmt.Errorf("%w: magic %x %x", ErrIdxFormat, hdr[0], hdr[1])
	}
	if hdr[2] != IdxUint8 {
		return nil, fmt.Errorf("%w: type %#x is not unsigned byte", ErrIdxFormat, hdr[2])
	}
	nd := int(hdr[3])
	if nd == 0 {
		return nil, fmt.Errorf("%w: no dimensions", ErrIdxFormat)
	}
	ix := &IdxFile{Dims: make([]int, nd)}
	n := 1
	for i := range ix.Dims {
		var sz uint32
		if err := binary.Read(r, binary.BigEndian, &sz); err != nil {
			return nil, fmt.Errorf("%w: size %d: %w", ErrIdxFormat, i, err)
		}
		ix.Dims[i] = int(sz)
		n *= int(sz)
	}
	ix.Data = make([]byte, n)
	if _, err := io.ReadFull(r, ix.Data); err != nil {
		return nil, fmt.Errorf("%w: %d data bytes: %w", ErrIdxFormat, n, err)
	}
	return ix, nil
}

// OpenIdx reads an IDX file. If filename has .gz extension, then file is
// gzip uncompressed.
func OpenIdx(filename string) (*IdxFile, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	var r io.Reader = bufio.NewReader(fp)
	if filepath.Ext(filename) == ".gz" {
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIdxFormat, err)
		}
		defer gzr.Close()
		r = gzr
	}
	return ReadIdx(r)
}

// WriteIdx encodes ix as an IDX stream.
func WriteIdx(w io.Writer, ix *IdxFile) error {
	if len(ix.Dims) == 0 || len(ix.Dims) > 255 {
		return fmt.Errorf("%w: %d dimensions", ErrIdxFormat, len(ix.Dims))
	}
	n := 1
	for _, d := range ix.Dims {
		n *= d
	}
	if n != len(ix.Data) {
		return fmt.Errorf("%w: dims %v hold %d bytes, data has %d", ErrIdxFormat, ix.Dims, n, len(ix.Data))
	}
	if _, err := w.Write([]byte{0, 0, IdxUint8, byte(len(ix.Dims))}); err != nil {
		return err
	}
	for _, d := range ix.Dims {
		if err := binary.Write(w, binary.BigEndian, uint32(d)); err != nil {
			return err
		}
	}
	_, err := w.Write(ix.Data)
	return err
}
