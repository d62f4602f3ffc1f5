// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf // import "github.com/phlip9/sgx-panic-backtrace/libpf"

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	sha256 "github.com/minio/sha256-simd"
)

// FileID identifies an executable image independently of where it is loaded.
// Operators use it to pick the matching binary when symbolizing a report.
type FileID struct {
	hi, lo uint64
}

// NewFileID creates a FileID from its two 64 bit halves.
func NewFileID(hi, lo uint64) FileID {
	return FileID{hi: hi, lo: lo}
}

// FileIDFromBytes parses the 16 byte big endian representation of a FileID.
func FileIDFromBytes(b []byte) (FileID, error) {
	if len(b) != 16 {
		return FileID{}, fmt.Errorf("invalid length for bytes: %d", len(b))
	}
	return FileID{
		hi: binary.BigEndian.Uint64(b[0:8]),
		lo: binary.BigEndian.Uint64(b[8:16]),
	}, nil
}

// Bytes returns the 16 byte big endian representation.
func (f FileID) Bytes() []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], f.hi)
	binary.BigEndian.PutUint64(b[8:16], f.lo)
	return b
}

// IsZero reports whether the FileID is unset.
func (f FileID) IsZero() bool {
	return f.hi == 0 && f.lo == 0
}

// String returns the lowercase hexadecimal notation of the FileID.
func (f FileID) String() string {
	return fmt.Sprintf("%016x%016x", f.hi, f.lo)
}

// UUIDString returns the FileID in UUID notation.
func (f FileID) UUIDString() string {
	// Can't fail: Bytes always returns 16 bytes.
	id, _ := uuid.FromBytes(f.Bytes())
	return id.String()
}

// FileIDFromExecutableReader hashes portions of the contents of the reader in order to
// generate a system-independent identifier. The file is expected to be an executable
// file where the header and footer has enough data to make the file unique.
func FileIDFromExecutableReader(reader io.ReadSeeker) (FileID, error) {
	h := sha256.New()

	// Hash algorithm: SHA256 of the following:
	// 1) 4 KiB header: should cover the program headers, and usually the GNU Build ID.
	// 2) 4 KiB trailer: should cover the ELF section headers.
	// 3) File length (8 bytes, big-endian).
	if _, err := io.Copy(h, io.LimitReader(reader, 4096)); err != nil {
		return FileID{}, fmt.Errorf("failed to hash file header: %v", err)
	}

	size, err := reader.Seek(0, io.SeekEnd)
	if err != nil {
		return FileID{}, fmt.Errorf("failed to seek end of file: %v", err)
	}

	tailBytes := min(size, 4096)
	if _, err = reader.Seek(-tailBytes, io.SeekEnd); err != nil {
		return FileID{}, fmt.Errorf("failed to seek file trailer: %v", err)
	}
	if _, err = io.Copy(h, reader); err != nil {
		return FileID{}, fmt.Errorf("failed to hash file trailer: %v", err)
	}

	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(size))
	_, _ = h.Write(length[:])

	return FileIDFromBytes(h.Sum(nil)[0:16])
}

// FileIDFromExecutableFile opens an executable file and calculates the FileID for it.
func FileIDFromExecutableFile(fileName string) (FileID, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return FileID{}, err
	}
	defer f.Close()

	return FileIDFromExecutableReader(f)
}
