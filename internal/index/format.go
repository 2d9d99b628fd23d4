package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sha1n/git-semantic/internal/domain"
)

const (
	// FormatVersion is the on-disk schema version. Files written with any
	// other version are rejected.
	FormatVersion uint32 = 2

	flagZstd uint32 = 1 << 0

	headerSize = 24

	// maxPayloadLen caps allocations when reading a damaged header.
	maxPayloadLen = 4 << 30
)

var magic = [4]byte{'G', 'S', 'I', 'X'}

var (
	errBadMagic        = errors.New("invalid magic number")
	errBadVersion      = errors.New("unsupported format version")
	errChecksum        = errors.New("checksum mismatch")
	errTruncated       = errors.New("truncated payload")
	errTrailingPayload = errors.New("unexpected data after last entry")
)

// fileHeader is the fixed little-endian header at the start of an index file.
type fileHeader struct {
	Magic      [4]byte
	Version    uint32
	Flags      uint32
	PayloadLen uint64
	Checksum   uint32 // CRC32 (IEEE) of the payload as stored
}

// Marshal serializes idx into the index file format.
func Marshal(idx *domain.SemanticIndex) ([]byte, error) {
	dim := idx.Dimension()
	var raw payloadWriter
	raw.string(idx.ModelVersion)
	raw.string(idx.LastCommit)
	raw.time(idx.Metadata.CreatedAt)
	raw.time(idx.Metadata.UpdatedAt)
	raw.uint64(uint64(idx.Metadata.TotalCommits))
	raw.bool(idx.Metadata.IncludeDiffs)
	raw.bool(idx.Entries != nil)
	raw.uint64(uint64(len(idx.Entries)))

	for i, entry := range idx.Entries {
		if len(entry.Embedding) != dim {
			return nil, fmt.Errorf("entry %d (%s) has %d dimensions, expected %d",
				i, entry.Commit.ShortHash(), len(entry.Embedding), dim)
		}
		raw.string(entry.Commit.Hash)
		raw.string(entry.Commit.Author)
		raw.time(entry.Commit.Date)
		raw.string(entry.Commit.Message)
		raw.string(entry.Commit.DiffSummary)
		raw.vector(entry.Embedding)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	payload := encoder.EncodeAll(raw.buf.Bytes(), nil)
	_ = encoder.Close()

	header := fileHeader{
		Magic:      magic,
		Version:    FormatVersion,
		Flags:      flagZstd,
		PayloadLen: uint64(len(payload)),
		Checksum:   crc32.ChecksumIEEE(payload),
	}

	var out bytes.Buffer
	out.Grow(headerSize + len(payload))
	if err := binary.Write(&out, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	out.Write(payload)
	return out.Bytes(), nil
}

// Unmarshal parses data written by Marshal.
func Unmarshal(data []byte) (*domain.SemanticIndex, error) {
	if len(data) < headerSize {
		return nil, errTruncated
	}

	var header fileHeader
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Magic != magic {
		return nil, errBadMagic
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d (expected %d)", errBadVersion, header.Version, FormatVersion)
	}
	if header.PayloadLen > maxPayloadLen || uint64(len(data)-headerSize) != header.PayloadLen {
		return nil, errTruncated
	}

	payload := data[headerSize:]
	if crc32.ChecksumIEEE(payload) != header.Checksum {
		return nil, errChecksum
	}

	if header.Flags&flagZstd != 0 {
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create decompressor: %w", err)
		}
		defer decoder.Close()
		payload, err = decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress payload: %w", err)
		}
	}

	return decodePayload(payload)
}

func decodePayload(payload []byte) (*domain.SemanticIndex, error) {
	r := payloadReader{r: bytes.NewReader(payload)}

	idx := &domain.SemanticIndex{}
	idx.ModelVersion = r.string()
	idx.LastCommit = r.string()
	idx.Metadata.CreatedAt = r.time()
	idx.Metadata.UpdatedAt = r.time()
	idx.Metadata.TotalCommits = int(r.uint64())
	idx.Metadata.IncludeDiffs = r.bool()
	hasEntries := r.bool()
	count := r.uint64()
	if r.err != nil {
		return nil, r.err
	}
	if count > uint64(len(payload)) {
		return nil, fmt.Errorf("%w: entry count %d", errTruncated, count)
	}

	if hasEntries {
		idx.Entries = make([]domain.IndexEntry, 0, count)
	}
	for i := uint64(0); i < count; i++ {
		var entry domain.IndexEntry
		entry.Commit.Hash = r.string()
		entry.Commit.Author = r.string()
		entry.Commit.Date = r.time()
		entry.Commit.Message = r.string()
		entry.Commit.DiffSummary = r.string()
		entry.Embedding = r.vector()
		if r.err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, r.err)
		}
		idx.Entries = append(idx.Entries, entry)
	}

	if r.r.Len() != 0 {
		return nil, errTrailingPayload
	}
	return idx, nil
}

type payloadWriter struct {
	buf bytes.Buffer
}

func (w *payloadWriter) uint32(v uint32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

func (w *payloadWriter) uint64(v uint64) {
	w.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
}

func (w *payloadWriter) bool(v bool) {
	if v {
		w.buf.WriteByte(1)
		return
	}
	w.buf.WriteByte(0)
}

func (w *payloadWriter) string(s string) {
	w.uint32(uint32(len(s)))
	w.buf.WriteString(s)
}

// time stores seconds and nanoseconds separately so dates outside the
// UnixNano range survive.
func (w *payloadWriter) time(t time.Time) {
	w.uint64(uint64(t.Unix()))
	w.uint32(uint32(t.Nanosecond()))
}

func (w *payloadWriter) vector(v []float32) {
	w.uint32(uint32(len(v)))
	for _, f := range v {
		w.uint32(math.Float32bits(f))
	}
}

// payloadReader decodes values in order, remembering the first error.
type payloadReader struct {
	r   *bytes.Reader
	err error
}

func (r *payloadReader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n > r.r.Len() {
		r.err = errTruncated
		return nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		r.err = errTruncated
		return nil
	}
	return b
}

func (r *payloadReader) uint32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *payloadReader) uint64() uint64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *payloadReader) bool() bool {
	b := r.next(1)
	if b == nil {
		return false
	}
	switch b[0] {
	case 0:
		return false
	case 1:
		return true
	default:
		r.err = fmt.Errorf("invalid boolean byte %#x", b[0])
		return false
	}
}

func (r *payloadReader) string() string {
	n := r.uint32()
	return string(r.next(int(n)))
}

func (r *payloadReader) time() time.Time {
	sec := int64(r.uint64())
	nsec := r.uint32()
	if nsec >= 1e9 {
		if r.err == nil {
			r.err = fmt.Errorf("invalid nanoseconds %d", nsec)
		}
		return time.Time{}
	}
	return time.Unix(sec, int64(nsec)).UTC()
}

func (r *payloadReader) vector() []float32 {
	n := int(r.uint32())
	raw := r.next(n * 4)
	if r.err != nil {
		return nil
	}
	v := make([]float32, n)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return v
}
