// Package segment persists a frozen inverted index as a single binary file:
// a fixed header, JSON posting lists, a JSON term dictionary, a JSON document
// block and a checksummed footer. Files are written to a temporary path and
// renamed into place.
package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/index"
)

const (
	// MagicBytes is "VSRX" little-endian.
	MagicBytes    uint32 = 0x58525356
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
	// Extension is the file suffix used for index segments.
	Extension = ".vsrx"
)

// Header is the fixed-size block at the start of every segment. The document
// block immediately follows the dictionary.
type Header struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	CreatedAt  int64
	DictOffset int64
	DictSize   int64
	PostOffset int64
	PostSize   int64
	DocsSize   int64
}

func (h Header) encode() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(b[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.PostSize))
	binary.LittleEndian.PutUint64(b[56:64], uint64(h.DocsSize))
	return b
}

func decodeHeader(b []byte) Header {
	return Header{
		Magic:      binary.LittleEndian.Uint32(b[0:4]),
		Version:    binary.LittleEndian.Uint32(b[4:8]),
		TermCount:  binary.LittleEndian.Uint32(b[8:12]),
		DocCount:   binary.LittleEndian.Uint32(b[12:16]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(b[16:24])),
		DictOffset: int64(binary.LittleEndian.Uint64(b[24:32])),
		DictSize:   int64(binary.LittleEndian.Uint64(b[32:40])),
		PostOffset: int64(binary.LittleEndian.Uint64(b[40:48])),
		PostSize:   int64(binary.LittleEndian.Uint64(b[48:56])),
		DocsSize:   int64(binary.LittleEndian.Uint64(b[56:64])),
	}
}

// DictEntry locates one term's postings relative to the postings block.
type DictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// docBlock carries the document order and the corpus fingerprint.
type docBlock struct {
	Fingerprint string   `json:"fingerprint"`
	Docs        []string `json:"docs"`
}

// Writer writes index segments into a directory.
type Writer struct {
	dataDir string
	logger  *slog.Logger
}

func NewWriter(dataDir string) *Writer {
	return &Writer{
		dataDir: dataDir,
		logger:  slog.Default().With("component", "segment-writer"),
	}
}

// Write atomically stores idx as <name>.vsrx and returns the final path.
func (w *Writer) Write(name string, idx *index.Index, fingerprint string) (string, error) {
	if idx.DocCount() == 0 {
		return "", fmt.Errorf("cannot write segment for an empty index")
	}
	if err := os.MkdirAll(w.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	finalPath := filepath.Join(w.dataDir, name+Extension)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	if err := writeSegment(f, idx, fingerprint); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing segment file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	w.logger.Info("segment written", "path", finalPath, "terms", len(idx.Terms()), "docs", idx.DocCount())
	return finalPath, nil
}

type offsetWriter interface {
	io.Writer
	io.WriterAt
}

func writeSegment(f offsetWriter, idx *index.Index, fingerprint string) error {
	entries := idx.Snapshot()
	header := Header{
		Magic:      MagicBytes,
		Version:    FormatVersion,
		TermCount:  uint32(len(entries)),
		DocCount:   uint32(idx.DocCount()),
		CreatedAt:  time.Now().Unix(),
		PostOffset: int64(HeaderSize),
	}
	if _, err := f.Write(header.encode()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	var offset int64
	dict := make([]DictEntry, 0, len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(entry.Postings)
		if err != nil {
			return fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("writing postings for term %q: %w", entry.Term, err)
		}
		dict = append(dict, DictEntry{
			Term:       entry.Term,
			PostOffset: offset,
			PostLen:    len(data),
			DocFreq:    len(entry.Postings),
		})
		offset += int64(len(data))
	}
	header.PostSize = offset
	header.DictOffset = header.PostOffset + header.PostSize

	dictData, err := json.Marshal(dict)
	if err != nil {
		return fmt.Errorf("marshaling dictionary: %w", err)
	}
	docsData, err := json.Marshal(docBlock{Fingerprint: fingerprint, Docs: idx.DocKeys()})
	if err != nil {
		return fmt.Errorf("marshaling document block: %w", err)
	}
	if _, err := f.Write(dictData); err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}
	if _, err := f.Write(docsData); err != nil {
		return fmt.Errorf("writing document block: %w", err)
	}
	header.DictSize = int64(len(dictData))
	header.DocsSize = int64(len(docsData))

	crc := crc32.NewIEEE()
	crc.Write(dictData)
	crc.Write(docsData)
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc.Sum32())
	binary.LittleEndian.PutUint32(footer[4:8], MagicBytes)
	binary.LittleEndian.PutUint64(footer[8:16], uint64(header.DictOffset+header.DictSize))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(header.DocsSize))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(header.PostSize))
	if _, err := f.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}
	if _, err := f.WriteAt(header.encode(), 0); err != nil {
		return fmt.Errorf("updating header: %w", err)
	}
	return nil
}
