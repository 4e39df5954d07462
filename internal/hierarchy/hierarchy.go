// Package hierarchy builds reporting trees from flat membership lists.
//
// Membership data is mutated concurrently elsewhere, so nothing here assumes
// well-formed input: dangling manager references and reporting cycles are
// resolved by promoting the affected members to roots.
package hierarchy

import "github.com/yukikurage/teamflow/internal/models"

// maxClimb bounds the upward walk used for cycle detection.
const maxClimb = 50

// TreeNode is one member in a reporting forest.
type TreeNode struct {
	Member   models.OrganizationMember
	Children []*TreeNode
	Depth    int

	parent *TreeNode
}

// ID returns the member's user id.
func (n *TreeNode) ID() uint64 {
	return n.Member.UserID
}

// BuildTree links members to their managers and returns the forest roots in
// input order. An edge is dropped when following reports-to links upward from
// the prospective manager leads back to the member; such members become roots.
func BuildTree(members []models.OrganizationMember) []*TreeNode {
	nodes := make(map[uint64]*TreeNode, len(members))
	order := make([]*TreeNode, 0, len(members))
	for _, m := range members {
		if _, dup := nodes[m.UserID]; dup {
			continue
		}
		n := &TreeNode{Member: m, Children: []*TreeNode{}}
		nodes[m.UserID] = n
		order = append(order, n)
	}

	roots := make([]*TreeNode, 0)
	for _, n := range order {
		parent := lookup(nodes, n.Member.ReportsTo)
		if parent == nil || reaches(nodes, parent, n.ID()) {
			roots = append(roots, n)
			continue
		}
		n.parent = parent
		parent.Children = append(parent.Children, n)
	}

	visited := make(map[uint64]struct{}, len(order))
	assignDepths(roots, visited)

	// Cycles longer than maxClimb slip past the climb check and would be
	// unreachable from any root; cut them loose here.
	for _, n := range order {
		if _, ok := visited[n.ID()]; ok {
			continue
		}
		detach(n)
		roots = append(roots, n)
		assignDepths([]*TreeNode{n}, visited)
	}

	return roots
}

// GetDescendants returns rootID together with every member that transitively
// reports to it. An unknown rootID yields a set holding only rootID.
func GetDescendants(rootID uint64, members []models.OrganizationMember) map[uint64]struct{} {
	node := Find(BuildTree(members), rootID)
	if node == nil {
		return map[uint64]struct{}{rootID: {}}
	}

	ids := make(map[uint64]struct{})
	stack := []*TreeNode{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := ids[n.ID()]; seen {
			continue
		}
		ids[n.ID()] = struct{}{}
		stack = append(stack, n.Children...)
	}
	return ids
}

// CheckCycle reports whether making draggedID report to targetID would create
// a cycle: reporting to oneself, or to one of one's own reports. Reports are
// taken from the built tree and also from the raw reports-to chain above
// targetID, so edges the tree had to drop still veto the move.
func CheckCycle(draggedID, targetID uint64, members []models.OrganizationMember) bool {
	if draggedID == targetID {
		return true
	}
	if _, inside := GetDescendants(draggedID, members)[targetID]; inside {
		return true
	}

	managers := make(map[uint64]*uint64, len(members))
	for _, m := range members {
		if _, dup := managers[m.UserID]; !dup {
			managers[m.UserID] = m.ReportsTo
		}
	}
	curr := managers[targetID]
	for hops := 0; curr != nil && hops < maxClimb; hops++ {
		if *curr == draggedID {
			return true
		}
		curr = managers[*curr]
	}
	return false
}

// Find locates id in the forest, depth first.
func Find(roots []*TreeNode, id uint64) *TreeNode {
	for _, n := range roots {
		if n.ID() == id {
			return n
		}
		if found := Find(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}

func lookup(nodes map[uint64]*TreeNode, id *uint64) *TreeNode {
	if id == nil {
		return nil
	}
	return nodes[*id]
}

// reaches walks reports-to links upward from start and reports whether it
// arrives at target within maxClimb hops.
func reaches(nodes map[uint64]*TreeNode, start *TreeNode, target uint64) bool {
	seen := make(map[uint64]struct{})
	curr := start
	for hops := 0; curr != nil && hops < maxClimb; hops++ {
		if curr.ID() == target {
			return true
		}
		if _, loop := seen[curr.ID()]; loop {
			return false
		}
		seen[curr.ID()] = struct{}{}
		curr = lookup(nodes, curr.Member.ReportsTo)
	}
	return false
}

// assignDepths walks breadth first from roots, never revisiting a node.
func assignDepths(roots []*TreeNode, visited map[uint64]struct{}) {
	type item struct {
		node  *TreeNode
		depth int
	}
	queue := make([]item, 0, len(roots))
	for _, r := range roots {
		if _, ok := visited[r.ID()]; ok {
			continue
		}
		visited[r.ID()] = struct{}{}
		queue = append(queue, item{r, 0})
	}

	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		it.node.Depth = it.depth
		for _, child := range it.node.Children {
			if _, ok := visited[child.ID()]; ok {
				continue
			}
			visited[child.ID()] = struct{}{}
			queue = append(queue, item{child, it.depth + 1})
		}
	}
}

func detach(n *TreeNode) {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.Children {
		if c == n {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	n.parent = nil
}
