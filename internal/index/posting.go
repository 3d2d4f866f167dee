package index

// Posting records how often a term occurs in one document.
type Posting struct {
	DocKey    string `json:"doc" cbor:"doc"`
	Frequency int    `json:"tf" cbor:"tf"`
}

// PostingList is sorted by DocKey.
type PostingList []Posting

// TermEntry is one dictionary entry of a frozen index.
type TermEntry struct {
	Term     string      `json:"term" cbor:"term"`
	Postings PostingList `json:"postings" cbor:"postings"`
}
