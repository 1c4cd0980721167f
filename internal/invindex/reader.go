package invindex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/cass/internal/textnorm"
)

type posting struct {
	docID int
	freq  int
}

// Reader is an immutable snapshot of the index taken at open time: later
// writes are invisible to it, matching spec.md §5's "readers obtain an
// immutable reader snapshot".
type Reader struct {
	docs     []Document
	postings map[string][]posting
	docFreq  map[string]int
}

// OpenReader loads every document in dir's document log into memory and
// builds the posting lists used by Search. A missing document log is not an
// error; it simply yields an empty reader.
func OpenReader(dir string) (*Reader, error) {
	r := &Reader{postings: make(map[string][]posting), docFreq: make(map[string]int)}

	path := filepath.Join(dir, docsFileName)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invindex: open doc log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var doc Document
		if err := json.Unmarshal(line, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		r.index(doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("invindex: read doc log: %w", err)
	}
	return r, nil
}

func (r *Reader) index(doc Document) {
	docID := len(r.docs)
	r.docs = append(r.docs, doc)

	freqs := make(map[string]int)
	for _, tok := range tokenize(doc.Title) {
		freqs[tok]++
	}
	for _, tok := range tokenize(doc.Content) {
		freqs[tok]++
	}
	// Edge n-grams feed the same posting space as title_prefix/content_prefix
	// so a prefix query ("cma-e") finds documents containing "cma-es".
	for _, tok := range edgeNgrams(doc.Title) {
		freqs[tok]++
	}
	for _, tok := range edgeNgrams(doc.Content) {
		freqs[tok]++
	}

	for tok, freq := range freqs {
		r.postings[tok] = append(r.postings[tok], posting{docID: docID, freq: freq})
		r.docFreq[tok]++
	}
}

// Filters mirrors store.Filters so the search client can apply the same
// predicate to either backend.
type Filters struct {
	Agents      []string
	Workspaces  []string
	CreatedFrom *int64
	CreatedTo   *int64
}

// Hit is one inverted-index match.
type Hit struct {
	Title      string
	Snippet    string
	Content    string
	Score      float64
	Agent      string
	Workspace  string
	SourcePath string
	MsgIdx     int
	CreatedAt  *int64
}

// Search runs a TF-IDF-variant ranked query: sanitized query terms are
// tokenized the same way documents were, scored per document as
// sum(tf * idf), filtered, sorted best-first, and truncated to limit.
func (r *Reader) Search(query string, filters Filters, limit int) []Hit {
	terms := tokenize(textnorm.SanitizeQuery(query))
	if len(terms) == 0 || len(r.docs) == 0 {
		return nil
	}

	scores := make(map[int]float64)
	n := float64(len(r.docs))
	for _, term := range terms {
		postings := r.postings[term]
		if len(postings) == 0 {
			continue
		}
		idf := math.Log(1 + n/float64(len(postings)))
		for _, p := range postings {
			scores[p.docID] += float64(p.freq) * idf
		}
	}
	if len(scores) == 0 {
		return nil
	}

	docIDs := make([]int, 0, len(scores))
	for id := range scores {
		docIDs = append(docIDs, id)
	}
	sort.Slice(docIDs, func(i, j int) bool { return scores[docIDs[i]] > scores[docIDs[j]] })

	var hits []Hit
	for _, id := range docIDs {
		doc := r.docs[id]
		if !matchesFilters(doc, filters) {
			continue
		}
		hits = append(hits, Hit{
			Title:      doc.Title,
			Snippet:    highlight(doc.Content, terms),
			Content:    doc.Content,
			Score:      scores[id],
			Agent:      doc.Agent,
			Workspace:  doc.Workspace,
			SourcePath: doc.SourcePath,
			MsgIdx:     doc.MsgIdx,
			CreatedAt:  doc.CreatedAt,
		})
		if len(hits) >= limit {
			break
		}
	}
	return hits
}

func matchesFilters(doc Document, f Filters) bool {
	if len(f.Agents) > 0 && !contains(f.Agents, doc.Agent) {
		return false
	}
	if len(f.Workspaces) > 0 && !contains(f.Workspaces, doc.Workspace) {
		return false
	}
	if f.CreatedFrom != nil && (doc.CreatedAt == nil || *doc.CreatedAt < *f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && (doc.CreatedAt == nil || *doc.CreatedAt > *f.CreatedTo) {
		return false
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// highlight wraps every case-insensitive occurrence of a query term in **
// markers. This plays the role spec.md assigns to a highlighter run against
// the compiled query with its native <b>/</b> output substituted for **; we
// produce the ** form directly rather than round-tripping through HTML.
func highlight(content string, terms []string) string {
	result := content
	for _, term := range terms {
		if term == "" {
			continue
		}
		result = replaceFold(result, term)
	}
	return result
}

func replaceFold(s, term string) string {
	lowerS := strings.ToLower(s)
	lowerTerm := strings.ToLower(term)
	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(lowerS[i:], lowerTerm)
		if idx < 0 {
			b.WriteString(s[i:])
			break
		}
		start := i + idx
		b.WriteString(s[i:start])
		b.WriteString("**")
		b.WriteString(s[start : start+len(term)])
		b.WriteString("**")
		i = start + len(term)
	}
	return b.String()
}
