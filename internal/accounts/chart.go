package accounts

import (
	"github.com/google/uuid"

	"github.com/cleared-dev/books/internal/model"
)

// Chart is an in-memory snapshot of one tenant's accounts: an arena indexed
// by ID plus a parent-to-children adjacency index. Top-level accounts are
// listed under uuid.Nil.
type Chart struct {
	byID     map[uuid.UUID]*model.Account
	byNumber map[string]*model.Account
	children map[uuid.UUID][]*model.Account
}

// Node is one account in a hierarchy tree.
type Node struct {
	Account  *model.Account
	Children []*Node
}

// NewChart indexes accounts. Children are kept in account-number order.
func NewChart(accounts []*model.Account) *Chart {
	c := &Chart{
		byID:     make(map[uuid.UUID]*model.Account, len(accounts)),
		byNumber: make(map[string]*model.Account, len(accounts)),
		children: make(map[uuid.UUID][]*model.Account),
	}
	for _, a := range accounts {
		c.byID[a.ID] = a
		c.byNumber[a.Number] = a
	}
	for _, a := range accounts {
		parent := uuid.Nil
		if a.ParentID != nil {
			parent = *a.ParentID
		}
		c.children[parent] = append(c.children[parent], a)
	}
	for _, list := range c.children {
		model.SortByNumber(list)
	}
	return c
}

// Account returns an account by ID.
func (c *Chart) Account(id uuid.UUID) (*model.Account, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// ByNumber returns an account by number.
func (c *Chart) ByNumber(number string) (*model.Account, bool) {
	a, ok := c.byNumber[number]
	return a, ok
}

// Children returns the direct children of id in number order. Pass uuid.Nil
// for top-level accounts.
func (c *Chart) Children(id uuid.UUID) []*model.Account {
	return c.children[id]
}

// Len returns the number of accounts.
func (c *Chart) Len() int {
	return len(c.byID)
}

// Tree builds the hierarchy below parentID, or every root when parentID is nil.
// With a parent the result has one node, the parent itself.
func (c *Chart) Tree(parentID *uuid.UUID) ([]*Node, error) {
	if parentID == nil {
		roots := c.children[uuid.Nil]
		nodes := make([]*Node, len(roots))
		for i, a := range roots {
			nodes[i] = c.subtree(a)
		}
		return nodes, nil
	}
	a, ok := c.byID[*parentID]
	if !ok {
		return nil, &model.NotFoundError{Kind: "account", Key: parentID.String()}
	}
	return []*Node{c.subtree(a)}, nil
}

// subtree expands a with an explicit stack; depth is bounded only by the data.
func (c *Chart) subtree(a *model.Account) *Node {
	root := &Node{Account: a}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		kids := c.children[n.Account.ID]
		n.Children = make([]*Node, len(kids))
		for i, k := range kids {
			n.Children[i] = &Node{Account: k}
			stack = append(stack, n.Children[i])
		}
	}
	return root
}

// Walk visits nodes depth-first in order, passing the depth (0 for the
// given nodes).
func Walk(nodes []*Node, fn func(n *Node, depth int)) {
	var visit func(ns []*Node, depth int)
	visit = func(ns []*Node, depth int) {
		for _, n := range ns {
			fn(n, depth)
			visit(n.Children, depth+1)
		}
	}
	visit(nodes, 0)
}
