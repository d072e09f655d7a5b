package storage

import (
	"sync"
	"sync/atomic"

	"github.com/wbrown/saturn/datalog"
)

// trieNode is keyed by the constant at one argument position. Nodes at the
// last position store leafMarker instead of a child.
type trieNode struct {
	children sync.Map // *datalog.Constant -> *trieNode | leafMarker
	present  atomic.Bool
}

type leaf struct{}

var leafMarker = leaf{}

// FactTrie records which ground facts exist. Add is the single point that
// decides whether a fact is new: it returns true exactly once per distinct
// fact no matter how many goroutines race to add it.
type FactTrie struct {
	roots sync.Map // *datalog.PredicateSym -> *trieNode
	size  atomic.Int64
}

// NewFactTrie creates an empty trie
func NewFactTrie() *FactTrie {
	return &FactTrie{}
}

// Add inserts atom with s applied. Every argument must resolve to a
// constant. It reports whether the fact was absent.
func (t *FactTrie) Add(atom *datalog.Atom, s datalog.Substitution) bool {
	node := loadNode(&t.roots, atom.Pred)
	n := len(atom.Args)
	if n == 0 {
		added := node.present.CompareAndSwap(false, true)
		if added {
			t.size.Add(1)
		}
		return added
	}
	for i := 0; i < n-1; i++ {
		node = loadNode(&node.children, groundArg(atom, i, s))
	}
	_, loaded := node.children.LoadOrStore(groundArg(atom, n-1, s), leafMarker)
	if !loaded {
		t.size.Add(1)
	}
	return !loaded
}

// Contains reports whether atom with s applied has been added
func (t *FactTrie) Contains(atom *datalog.Atom, s datalog.Substitution) bool {
	v, ok := t.roots.Load(atom.Pred)
	if !ok {
		return false
	}
	node := v.(*trieNode)
	n := len(atom.Args)
	if n == 0 {
		return node.present.Load()
	}
	for i := 0; i < n-1; i++ {
		v, ok := node.children.Load(groundArg(atom, i, s))
		if !ok {
			return false
		}
		node = v.(*trieNode)
	}
	_, ok = node.children.Load(groundArg(atom, n-1, s))
	return ok
}

// Size returns the number of distinct facts added
func (t *FactTrie) Size() int {
	return int(t.size.Load())
}

func loadNode(m *sync.Map, key any) *trieNode {
	if v, ok := m.Load(key); ok {
		return v.(*trieNode)
	}
	v, _ := m.LoadOrStore(key, &trieNode{})
	return v.(*trieNode)
}

func groundArg(atom *datalog.Atom, i int, s datalog.Substitution) *datalog.Constant {
	c, ok := datalog.Resolve(atom.Args[i], s).(*datalog.Constant)
	if !ok {
		panic("storage: trie key " + atom.String() + " is not ground")
	}
	return c
}
