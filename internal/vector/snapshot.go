package vector

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"path/filepath"

	"github.com/hyperjump/docrag/internal/models"
)

// Snapshot layout, little-endian:
//
//	magic "DRAGSNAP" | version u32 | dims u32 | count u32
//	count × ( metaLen u32 | chunk JSON | dims × f32 )
//	crc32(IEEE) of everything above
const (
	snapshotMagic   = "DRAGSNAP"
	snapshotVersion = 1
	headerSize      = len(snapshotMagic) + 12
	trailerSize     = 4
)

func encodeSnapshot(dims int, chunks []models.Chunk, vectors [][]float32) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(snapshotMagic)
	var u32 [4]byte
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(u32[:], v)
		buf.Write(u32[:])
	}
	putU32(snapshotVersion)
	putU32(uint32(dims))
	putU32(uint32(len(chunks)))
	for i := range chunks {
		meta, err := json.Marshal(&chunks[i])
		if err != nil {
			return nil, fmt.Errorf("encode chunk %d: %w", i, err)
		}
		putU32(uint32(len(meta)))
		buf.Write(meta)
		for _, v := range vectors[i] {
			putU32(math.Float32bits(v))
		}
	}
	putU32(crc32.ChecksumIEEE(buf.Bytes()))
	return buf.Bytes(), nil
}

func decodeSnapshot(data []byte) (int, []models.Chunk, [][]float32, error) {
	corrupt := func(format string, args ...any) (int, []models.Chunk, [][]float32, error) {
		return 0, nil, nil, fmt.Errorf("%w: %s", ErrCorruptSnapshot, fmt.Sprintf(format, args...))
	}
	if len(data) < headerSize+trailerSize {
		return corrupt("truncated header (%d bytes)", len(data))
	}
	if string(data[:len(snapshotMagic)]) != snapshotMagic {
		return corrupt("bad magic")
	}
	body := data[:len(data)-trailerSize]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(data[len(body):]) {
		return corrupt("checksum mismatch")
	}

	pos := len(snapshotMagic)
	u32 := func() uint32 {
		v := binary.LittleEndian.Uint32(body[pos:])
		pos += 4
		return v
	}
	if v := u32(); v != snapshotVersion {
		return corrupt("unsupported version %d", v)
	}
	dims := int(u32())
	count := int(u32())

	vecBytes := dims * 4
	if count > (len(body)-pos)/(4+vecBytes) {
		return corrupt("count %d exceeds payload", count)
	}
	chunks := make([]models.Chunk, count)
	vectors := make([][]float32, count)
	for i := 0; i < count; i++ {
		if len(body)-pos < 4 {
			return corrupt("record %d truncated", i)
		}
		metaLen := int(u32())
		if metaLen > len(body)-pos-vecBytes {
			return corrupt("record %d truncated", i)
		}
		if err := json.Unmarshal(body[pos:pos+metaLen], &chunks[i]); err != nil {
			return corrupt("record %d: %v", i, err)
		}
		pos += metaLen
		vec := make([]float32, dims)
		for j := range vec {
			vec[j] = math.Float32frombits(u32())
		}
		vectors[i] = vec
	}
	if pos != len(body) {
		return corrupt("%d trailing bytes", len(body)-pos)
	}
	return dims, chunks, vectors, nil
}

// writeFileAtomic writes data to a temp file in path's directory, syncs it, and
// renames it over path so readers see either the old or the new snapshot.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// readSnapshot returns an empty result with no error when path does not exist.
func readSnapshot(path string) (int, []models.Chunk, [][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil, nil, nil
		}
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return decodeSnapshot(data)
}
