package index

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// ChainStatus reports whether a chain could be resolved.
type ChainStatus string

const (
	ChainFound    ChainStatus = "found"
	ChainNotFound ChainStatus = "not_found"
)

// Chain is a resolved prerequisite path ending in Target.
type Chain struct {
	Target string      `json:"target"`
	Status ChainStatus `json:"status"`
	Steps  []string    `json:"steps"`
}

// Index is one immutable snapshot of a built project. Only the chain memo
// changes after Build returns, and it is guarded by its own mutex.
type Index struct {
	Root    string    `json:"root"`
	BuiltAt time.Time `json:"builtAt"`

	States      []*StateDocument      `json:"states"`
	Transitions []*TransitionDocument `json:"transitions"`
	Validations []*ValidationDocument `json:"validations"`
	Conditions  []*ConditionDocument  `json:"conditions"`

	ByID     map[string]Document              `json:"-"`
	ByState  map[string]*StateDocument        `json:"-"`
	ByField  map[string][]*ConditionDocument  `json:"-"`
	ByTicket map[string][]*ValidationDocument `json:"-"`
	ByEvent  map[string][]*TransitionDocument `json:"-"`

	// Terms is the inverted index: term -> set of document ids.
	Terms map[string]map[string]struct{} `json:"-"`

	Stats BuildStats `json:"stats"`

	incoming map[string][]*TransitionDocument
	outgoing map[string][]*TransitionDocument
	termList []string

	chainMu sync.Mutex
	chains  map[string]Chain
}

func newIndex(root string) *Index {
	return &Index{
		Root:     root,
		BuiltAt:  time.Now(),
		ByID:     make(map[string]Document),
		ByState:  make(map[string]*StateDocument),
		ByField:  make(map[string][]*ConditionDocument),
		ByTicket: make(map[string][]*ValidationDocument),
		ByEvent:  make(map[string][]*TransitionDocument),
		Terms:    make(map[string]map[string]struct{}),
		incoming: make(map[string][]*TransitionDocument),
		outgoing: make(map[string][]*TransitionDocument),
		chains:   make(map[string]Chain),
	}
}

// Documents returns every document of the given types in collection order.
// No types means all of them.
func (idx *Index) Documents(types ...DocType) []Document {
	if len(types) == 0 {
		types = AllTypes
	}
	var out []Document
	for _, t := range types {
		switch t {
		case TypeState:
			for _, d := range idx.States {
				out = append(out, d)
			}
		case TypeTransition:
			for _, d := range idx.Transitions {
				out = append(out, d)
			}
		case TypeValidation:
			for _, d := range idx.Validations {
				out = append(out, d)
			}
		case TypeCondition:
			for _, d := range idx.Conditions {
				out = append(out, d)
			}
		}
	}
	return out
}

// Incoming returns the transitions targeting state in insertion order.
func (idx *Index) Incoming(state string) []*TransitionDocument {
	return idx.incoming[state]
}

// Outgoing returns the transitions leaving state in insertion order.
func (idx *Index) Outgoing(state string) []*TransitionDocument {
	return idx.outgoing[state]
}

// SortedTerms returns every indexed term in ascending order. The slice is
// shared and must not be modified.
func (idx *Index) SortedTerms() []string {
	return idx.termList
}

// Postings returns the ids of documents containing term, sorted.
func (idx *Index) Postings(term string) []string {
	set := idx.Terms[term]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// DocFreq returns the number of documents containing term.
func (idx *Index) DocFreq(term string) int {
	return len(idx.Terms[term])
}

// CachedChain returns the memoized chain for state, if any.
func (idx *Index) CachedChain(state string) (Chain, bool) {
	idx.chainMu.Lock()
	defer idx.chainMu.Unlock()
	c, ok := idx.chains[state]
	return c, ok
}

// StoreChain memoizes a chain for the lifetime of this snapshot.
func (idx *Index) StoreChain(state string, c Chain) {
	idx.chainMu.Lock()
	defer idx.chainMu.Unlock()
	idx.chains[state] = c
}

// Fingerprint hashes every document, ordered by id, so two snapshots with
// the same content have the same fingerprint regardless of build order.
func (idx *Index) Fingerprint() string {
	ids := make([]string, 0, len(idx.ByID))
	for id := range idx.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := sha256.New()
	for _, id := range ids {
		data, err := json.Marshal(idx.ByID[id])
		if err != nil {
			continue
		}
		h.Write([]byte(id))
		h.Write([]byte{0})
		h.Write(data)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (idx *Index) addTerms(id string, texts ...string) {
	for _, text := range texts {
		for _, tok := range Tokenize(text) {
			set, ok := idx.Terms[tok]
			if !ok {
				set = make(map[string]struct{})
				idx.Terms[tok] = set
			}
			set[id] = struct{}{}
		}
	}
}

func (idx *Index) finalizeTerms() {
	idx.termList = make([]string, 0, len(idx.Terms))
	for t := range idx.Terms {
		idx.termList = append(idx.termList, t)
	}
	sort.Strings(idx.termList)
}
