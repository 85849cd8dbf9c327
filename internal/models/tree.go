package models

import "sort"

// NodeIndex identifies a node within a TransactionTree by its trace index.
// Using the trace index itself as the key (rather than a pointer) is the
// "arena with stable indices" design named in §9: the rewriter can delete
// nodes without invalidating indices held by other in-flight rewrites.
type NodeIndex = int

// TreeNode is one node of a TransactionTree: an Action plus the structural
// bookkeeping (parent/children) needed to walk and rewrite the tree.
type TreeNode struct {
	Index    NodeIndex
	Action   Action
	Parent   NodeIndex // -1 for the root
	Children []NodeIndex
	pruned   bool
}

// TransactionTree is the rooted tree of Actions for one transaction. Nodes
// are stored in an arena keyed by trace index; pruning marks a node dead
// rather than compacting the slice, so indices never shift mid-rewrite.
type TransactionTree struct {
	TxHash string
	TxIndex uint
	nodes   map[NodeIndex]*TreeNode
	root    NodeIndex
}

// NewTransactionTree creates an empty tree for the given transaction.
func NewTransactionTree(txHash string, txIndex uint) *TransactionTree {
	return &TransactionTree{
		TxHash:  txHash,
		TxIndex: txIndex,
		nodes:   make(map[NodeIndex]*TreeNode),
		root:    -1,
	}
}

// AddNode inserts a node at traceIndex with the given parent (-1 for root)
// and action. The builder calls this once per input trace, in pre-order, so
// invariant (i)/(ii) of §3 (unique, increasing, contiguous indices) holds by
// construction.
func (t *TransactionTree) AddNode(traceIndex int, parent NodeIndex, action Action) {
	node := &TreeNode{Index: traceIndex, Action: action, Parent: parent}
	t.nodes[traceIndex] = node
	if parent == -1 {
		t.root = traceIndex
	} else if p, ok := t.nodes[parent]; ok {
		p.Children = append(p.Children, traceIndex)
	}
}

// Node returns the node at index, or nil if absent or pruned.
func (t *TransactionTree) Node(index NodeIndex) *TreeNode {
	n, ok := t.nodes[index]
	if !ok || n.pruned {
		return nil
	}
	return n
}

// SetAction replaces the Action stored at index (used by the rewriter's
// parse_fn to mutate the anchor in place).
func (t *TransactionTree) SetAction(index NodeIndex, action Action) {
	if n, ok := t.nodes[index]; ok {
		n.Action = action
	}
}

// Root returns the tree's root node index, or -1 if empty.
func (t *TransactionTree) Root() NodeIndex {
	return t.root
}

// Prune removes the given indices from the tree: detaches them from their
// parent's children list and marks them dead. Grandchildren of a pruned node
// are pruned transitively, since the rewriter always collapses a subtree.
func (t *TransactionTree) Prune(indices []NodeIndex) {
	toPrune := make(map[NodeIndex]bool, len(indices))
	for _, idx := range indices {
		toPrune[idx] = true
	}
	for idx := range toPrune {
		t.pruneSubtree(idx, toPrune)
	}
	for idx := range toPrune {
		n, ok := t.nodes[idx]
		if !ok {
			continue
		}
		n.pruned = true
		if p, ok := t.nodes[n.Parent]; ok {
			p.Children = removeIndex(p.Children, idx)
		}
	}
}

func (t *TransactionTree) pruneSubtree(idx NodeIndex, acc map[NodeIndex]bool) {
	n, ok := t.nodes[idx]
	if !ok {
		return
	}
	for _, c := range n.Children {
		acc[c] = true
		t.pruneSubtree(c, acc)
	}
}

func removeIndex(s []NodeIndex, v NodeIndex) []NodeIndex {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// PreOrder returns every live node's index in ascending trace-index order.
// Because trace indices are assigned pre-order at build time and pruning
// never reassigns them, sorting the surviving keys reproduces pre-order.
func (t *TransactionTree) PreOrder() []NodeIndex {
	out := make([]NodeIndex, 0, len(t.nodes))
	for idx, n := range t.nodes {
		if !n.pruned {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}

// Descendants returns every live descendant of node matching pred, in
// pre-order. This is the "tree_search_builder" primitive named in §4.F.
func (t *TransactionTree) Descendants(root NodeIndex, pred func(Action) bool) []NodeIndex {
	var out []NodeIndex
	var walk func(idx NodeIndex)
	walk = func(idx NodeIndex) {
		n, ok := t.nodes[idx]
		if !ok || n.pruned {
			return
		}
		for _, c := range n.Children {
			cn := t.nodes[c]
			if cn == nil || cn.pruned {
				continue
			}
			if pred(cn.Action) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	sort.Ints(out)
	return out
}

// Len returns the number of live nodes.
func (t *TransactionTree) Len() int {
	n := 0
	for _, node := range t.nodes {
		if !node.pruned {
			n++
		}
	}
	return n
}

// Actions returns every live node's Action in pre-order, for sanitizer
// passes and serialization.
func (t *TransactionTree) Actions() []Action {
	order := t.PreOrder()
	out := make([]Action, 0, len(order))
	for _, idx := range order {
		out = append(out, t.nodes[idx].Action)
	}
	return out
}

// BlockTree is the ordered sequence of TransactionTrees for a block, plus a
// header summary. Immutable once emitted by the pipeline.
type BlockTree struct {
	Header       BlockHeader
	Transactions []*TransactionTree
}
