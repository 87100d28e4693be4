package zip

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/fs"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEntry describes one member of a synthetic archive.
type testEntry struct {
	name   string
	data   []byte
	method CompressionMethod

	// localExtra is written into the local header only, exercising the
	// case where local and central name/extra lengths differ.
	localExtra []byte
}

func deflateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, fw.Close())
	return buf.Bytes()
}

// buildArchive assembles a well-formed single-disk ZIP file in memory:
// local headers with entry data, then the central directory, then the
// EOCD record with an optional trailing comment.
func buildArchive(t *testing.T, entries []testEntry, comment []byte) []byte {
	t.Helper()

	type placed struct {
		testEntry
		payload []byte
		offset  uint32
	}

	var buf bytes.Buffer
	placedEntries := make([]placed, 0, len(entries))

	for _, e := range entries {
		payload := e.data
		if e.method == MethodDeflate {
			payload = deflateBytes(t, e.data)
		}
		p := placed{testEntry: e, payload: payload, offset: uint32(buf.Len())}

		lh := localHeader{
			Signature:        localHeaderSignature,
			Method:           uint16(e.method),
			CompressedSize:   uint32(len(payload)),
			UncompressedSize: uint32(len(e.data)),
			NameLen:          uint16(len(e.name)),
			ExtraLen:         uint16(len(e.localExtra)),
		}
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, lh))
		buf.WriteString(e.name)
		buf.Write(e.localExtra)
		buf.Write(payload)

		placedEntries = append(placedEntries, p)
	}

	cdOffset := uint32(buf.Len())
	for _, p := range placedEntries {
		ch := centralHeader{
			Signature:        centralHeaderSignature,
			Method:           uint16(p.method),
			CompressedSize:   uint32(len(p.payload)),
			UncompressedSize: uint32(len(p.data)),
			NameLen:          uint16(len(p.name)),
			LocalOffset:      p.offset,
		}
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, ch))
		buf.WriteString(p.name)
	}

	eocd := eocdRecord{
		Signature:  eocdRecordSignature,
		Entries:    uint16(len(placedEntries)),
		Offset:     cdOffset,
		CommentLen: uint16(len(comment)),
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, eocd))
	buf.Write(comment)

	return buf.Bytes()
}

func compressible(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte("abcdefgh"[i%8])
	}
	return data
}

func TestArchiveRoundTripStored(t *testing.T) {
	content := []byte("uniform vec2 resolution;\nvoid main() {}\n")
	raw := buildArchive(t, []testEntry{
		{name: "shader.glsl", data: content, method: MethodStored},
	}, nil)

	a, err := NewArchive(bytes.NewReader(raw))
	require.NoError(t, err)

	f, err := a.Open("shader.glsl")
	require.NoError(t, err)
	defer f.Close()

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestArchiveRoundTripDeflate(t *testing.T) {
	content := compressible(4096)
	raw := buildArchive(t, []testEntry{
		{name: "data.bin", data: content, method: MethodDeflate},
	}, nil)

	a, err := NewArchive(bytes.NewReader(raw))
	require.NoError(t, err)

	f, err := a.Open("data.bin")
	require.NoError(t, err)
	defer f.Close()

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Len(t, got, 4096)
	assert.Equal(t, content, got)
}

func TestArchiveReadableBytesMatchRecordedSize(t *testing.T) {
	entries := []testEntry{
		{name: "a.txt", data: []byte("first"), method: MethodStored},
		{name: "b.txt", data: compressible(1000), method: MethodDeflate},
		{name: "c/d.txt", data: compressible(300), method: MethodStored},
	}
	raw := buildArchive(t, entries, nil)

	a, err := NewArchive(bytes.NewReader(raw))
	require.NoError(t, err)

	for _, e := range entries {
		f, err := a.Open(e.name)
		require.NoError(t, err, e.name)
		got, err := io.ReadAll(f)
		require.NoError(t, err, e.name)
		require.NoError(t, f.Close())

		stat, err := a.Stat(e.name)
		require.NoError(t, err, e.name)
		assert.Equal(t, stat.UncompressedSize, int64(len(got)), e.name)
		assert.Equal(t, int64(len(e.data)), int64(len(got)), e.name)
	}
}

func TestArchiveDuplicateNameLastWins(t *testing.T) {
	raw := buildArchive(t, []testEntry{
		{name: "dup.txt", data: []byte("older"), method: MethodStored},
		{name: "dup.txt", data: []byte("newer"), method: MethodStored},
	}, nil)

	a, err := NewArchive(bytes.NewReader(raw))
	require.NoError(t, err)

	f, err := a.Open("dup.txt")
	require.NoError(t, err)
	defer f.Close()

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("newer"), got)
}

func TestArchiveLocalHeaderLengthsAuthoritative(t *testing.T) {
	// The local header carries an extra field the central directory does
	// not report; the data offset must come from the local copy.
	content := []byte("payload after extra field")
	raw := buildArchive(t, []testEntry{
		{
			name:       "padded.bin",
			data:       content,
			method:     MethodStored,
			localExtra: []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x00},
		},
	}, nil)

	a, err := NewArchive(bytes.NewReader(raw))
	require.NoError(t, err)

	f, err := a.Open("padded.bin")
	require.NoError(t, err)
	defer f.Close()

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestArchiveMissingEntry(t *testing.T) {
	raw := buildArchive(t, []testEntry{
		{name: "present.txt", data: []byte("x"), method: MethodStored},
	}, nil)

	a, err := NewArchive(bytes.NewReader(raw))
	require.NoError(t, err)

	_, err = a.Open("absent.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestArchiveUnsupportedMethod(t *testing.T) {
	raw := buildArchive(t, []testEntry{
		{name: "weird.bin", data: []byte("bzip2 maybe"), method: CompressionMethod(12)},
	}, nil)

	a, err := NewArchive(bytes.NewReader(raw))
	require.NoError(t, err)

	_, err = a.Open("weird.bin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported compression method")
}

func TestArchiveTrailingComment(t *testing.T) {
	comment := bytes.Repeat([]byte("c"), 3000)
	raw := buildArchive(t, []testEntry{
		{name: "a.txt", data: []byte("hello"), method: MethodStored},
	}, comment)

	a, err := NewArchive(bytes.NewReader(raw))
	require.NoError(t, err)

	f, err := a.Open("a.txt")
	require.NoError(t, err)
	defer f.Close()

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestArchiveCommentBeyondScanBound(t *testing.T) {
	// Push the EOCD record further from the end of the file than the
	// backward scan is allowed to look.
	raw := buildArchive(t, []testEntry{
		{name: "a.txt", data: []byte("hello"), method: MethodStored},
	}, nil)
	raw = append(raw, bytes.Repeat([]byte{0xff}, eocdScanWindow*eocdScanLimit+eocdScanWindow)...)

	_, err := NewArchive(bytes.NewReader(raw))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end of central directory")
}

func TestArchiveNotAZipFile(t *testing.T) {
	_, err := NewArchive(bytes.NewReader([]byte("definitely not an archive")))
	require.Error(t, err)
}

func TestArchiveEntriesSorted(t *testing.T) {
	raw := buildArchive(t, []testEntry{
		{name: "zebra.txt", data: []byte("z"), method: MethodStored},
		{name: "alpha.txt", data: compressible(64), method: MethodDeflate},
	}, nil)

	a, err := NewArchive(bytes.NewReader(raw))
	require.NoError(t, err)

	entries, err := a.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alpha.txt", entries[0].Name)
	assert.Equal(t, MethodDeflate, entries[0].Method)
	assert.Equal(t, int64(64), entries[0].UncompressedSize)
	assert.Equal(t, "zebra.txt", entries[1].Name)
	assert.Equal(t, MethodStored, entries[1].Method)
}
