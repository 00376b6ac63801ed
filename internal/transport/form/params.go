package form

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// node is one level of a bracketed parameter tree: "a[b][]=x" stores x in
// the values of node a -> b.
type node struct {
	values   []string
	children map[string]*node
}

func newNode() *node { return &node{children: map[string]*node{}} }

// parseValues nests v by its bracketed keys.
func parseValues(v url.Values) *node {
	root := newNode()
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := splitKey(k)
		n := root
		for i, seg := range path {
			if seg == "" && i > 0 && i < len(path)-1 {
				// "a[][b]" opens a new indexed row.
				seg = strconv.Itoa(len(n.children))
			}
			if seg == "" {
				break
			}
			n = n.child(seg)
		}
		n.values = append(n.values, v[k]...)
	}
	return root
}

// splitKey splits "a[b][c]" into a, b, c. A key with unbalanced brackets is
// taken literally.
func splitKey(k string) []string {
	open := strings.IndexByte(k, '[')
	if open <= 0 {
		return []string{k}
	}
	out := []string{k[:open]}
	rest := k[open:]
	for rest != "" {
		if rest[0] != '[' {
			return []string{k}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{k}
		}
		out = append(out, rest[1:end])
		rest = rest[end+1:]
	}
	return out
}

func (n *node) child(k string) *node {
	c, ok := n.children[k]
	if !ok {
		c = newNode()
		n.children[k] = c
	}
	return c
}

// get returns the child at k or nil.
func (n *node) get(k string) *node {
	if n == nil {
		return nil
	}
	return n.children[k]
}

// first returns the first non-blank value of child k.
func (n *node) first(k string) string {
	for _, v := range n.get(k).all() {
		if v != "" {
			return v
		}
	}
	return ""
}

// all returns the trimmed values of n, including those of indexed children
// ("a[0]=x&a[1]=y").
func (n *node) all() []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.values))
	for _, v := range n.values {
		out = append(out, strings.TrimSpace(v))
	}
	for _, c := range n.rows() {
		out = append(out, c.all()...)
	}
	return out
}

// nonEmpty returns the values of child k with blanks removed.
func (n *node) nonEmpty(k string) []string {
	var out []string
	for _, v := range n.get(k).all() {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// rows returns the children with integer keys in ascending index order.
func (n *node) rows() []*node {
	if n == nil {
		return nil
	}
	type row struct {
		i int
		n *node
	}
	var idx []row
	for k, c := range n.children {
		i, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		idx = append(idx, row{i, c})
	}
	sort.Slice(idx, func(a, b int) bool { return idx[a].i < idx[b].i })
	out := make([]*node, len(idx))
	for i, r := range idx {
		out[i] = r.n
	}
	return out
}

// names returns the non-integer child keys, sorted.
func (n *node) names() []string {
	if n == nil {
		return nil
	}
	var out []string
	for k := range n.children {
		if _, err := strconv.Atoi(k); err == nil {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
