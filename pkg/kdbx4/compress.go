// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// gzipCompress compresses data at the default compression level, the
// same choice the reference client makes for the inner payload.
func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	return buf.Bytes(), nil
}

// gzipDecompress inflates data, refusing to produce more than
// MaxDecompressedSize bytes so a malicious file cannot use a
// decompression bomb to exhaust memory.
func gzipDecompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	defer zr.Close()

	limited := io.LimitReader(zr, MaxDecompressedSize+1)
	out, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	if len(out) > MaxDecompressedSize {
		return nil, fmt.Errorf("%w: decompressed payload exceeds %d bytes", ErrCompression, MaxDecompressedSize)
	}
	return out, nil
}
