package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
)

// Reader gives random access to the postings of one segment.
type Reader struct {
	file     *os.File
	filePath string
	header   Header
	dict     []DictEntry
	docs     docBlock
}

// OpenReader validates the header, footer and checksum and loads the
// dictionary and document block into memory.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := openReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func openReader(f *os.File, path string) (*Reader, error) {
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading segment header %s: %w: %v", path, apperrors.ErrMalformedRecord, err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, fmt.Errorf("invalid segment file %s: bad magic bytes %x: %w", path, header.Magic, apperrors.ErrMalformedRecord)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("segment file %s has version %d, want %d: %w", path, header.Version, FormatVersion, apperrors.ErrSnapshotMismatch)
	}

	tail := make([]byte, header.DictSize+header.DocsSize+int64(FooterSize))
	if _, err := f.ReadAt(tail, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading segment tail %s: %w: %v", path, apperrors.ErrMalformedRecord, err)
	}
	dictBytes := tail[:header.DictSize]
	docsBytes := tail[header.DictSize : header.DictSize+header.DocsSize]
	footer := tail[header.DictSize+header.DocsSize:]

	crc := crc32.NewIEEE()
	crc.Write(dictBytes)
	crc.Write(docsBytes)
	if want := binary.LittleEndian.Uint32(footer[0:4]); crc.Sum32() != want {
		return nil, fmt.Errorf("segment %s checksum mismatch: %w", path, apperrors.ErrMalformedRecord)
	}

	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	var docs docBlock
	if err := json.Unmarshal(docsBytes, &docs); err != nil {
		return nil, fmt.Errorf("parsing document block: %w", err)
	}
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
		docs:     docs,
	}, nil
}

// Search returns the postings of term, or nil when the term is absent.
func (r *Reader) Search(term string) (index.PostingList, error) {
	i := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if i >= len(r.dict) || r.dict[i].Term != term {
		return nil, nil
	}
	return r.readPostings(r.dict[i])
}

func (r *Reader) readPostings(entry DictEntry) (index.PostingList, error) {
	buf := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(buf, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings for %q: %w", entry.Term, err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(buf, &postings); err != nil {
		return nil, fmt.Errorf("parsing postings for %q: %w", entry.Term, err)
	}
	return postings, nil
}

// Load reads every posting list and rebuilds the in-memory index.
func (r *Reader) Load() (*index.Index, error) {
	entries := make([]index.TermEntry, 0, len(r.dict))
	for _, entry := range r.dict {
		postings, err := r.readPostings(entry)
		if err != nil {
			return nil, err
		}
		entries = append(entries, index.TermEntry{Term: entry.Term, Postings: postings})
	}
	return index.FromEntries(r.docs.Docs, entries)
}

// Fingerprint returns the corpus fingerprint the segment was built from.
func (r *Reader) Fingerprint() string {
	return r.docs.Fingerprint
}

func (r *Reader) TermCount() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Close() error {
	return r.file.Close()
}
