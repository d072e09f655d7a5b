package engine

import (
	"github.com/wbrown/saturn/datalog"
	"github.com/wbrown/saturn/datalog/metrics"
	"github.com/wbrown/saturn/datalog/storage"
)

// factStore couples the trie that decides novelty with the indexes joins
// read from. A fact reaches the indexes only if the trie reported it new,
// so every distinct fact is indexed and propagated exactly once.
type factStore struct {
	trie    *storage.FactTrie
	index   *storage.FactIndexer
	metrics *metrics.Metrics
}

func newFactStore(m *metrics.Metrics) *factStore {
	return &factStore{
		trie:    storage.NewFactTrie(),
		index:   storage.NewFactIndexer(),
		metrics: m,
	}
}

// addGround stores a ground fact and reports whether it was new
func (fs *factStore) addGround(fact *datalog.Atom) bool {
	if !fs.trie.Add(fact, nil) {
		return false
	}
	fs.index.Add(fact)
	fs.metrics.FactDerived()
	return true
}

// addDerived stores head under s. The ground atom is only built once the
// trie has accepted it.
func (fs *factStore) addDerived(head *datalog.Atom, s *datalog.ClauseSubstitution) (*datalog.Atom, bool) {
	if !fs.trie.Add(head, s) {
		return nil, false
	}
	fact := head.Apply(s)
	fs.index.Add(fact)
	fs.metrics.FactDerived()
	return fact, true
}

// getFacts is the lookup every clause evaluator joins through
func (fs *factStore) getFacts(atom *datalog.Atom, s datalog.Substitution) []*datalog.Atom {
	return fs.index.IndexInto(atom, s)
}
