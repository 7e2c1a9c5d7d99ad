package connections

import (
	"context"
	"sort"
)

// TreeNode represents an item in the rendered hierarchy. Folder nodes carry
// the number of connections in their subtree.
type TreeNode struct {
	Item            Item        `json:"item"`
	ConnectionCount int         `json:"connection_count"`
	Children        []*TreeNode `json:"children,omitempty"`
}

// Tree renders a zone's items as a forest. Items whose parent cannot be
// resolved (orphans awaiting reconciliation) are surfaced at the root rather
// than dropped, so callers see everything the zone contains.
func (s *Store) Tree(ctx context.Context, zone string) ([]*TreeNode, error) {
	items, err := s.GetAllItems(ctx, zone)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*TreeNode, len(items))
	for _, item := range items {
		count := 0
		if item.Type == TypeConnection {
			count = 1
		}
		nodes[item.ID] = &TreeNode{Item: item, ConnectionCount: count}
	}

	var roots []*TreeNode
	for _, node := range nodes {
		if node.Item.ParentID != nil {
			if parent, ok := nodes[*node.Item.ParentID]; ok && parent.Item.Type == TypeFolder {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	for _, root := range roots {
		aggregateConnectionCounts(root)
		sortChildren(root)
	}

	sort.Slice(roots, func(i, j int) bool {
		return roots[i].Item.Name < roots[j].Item.Name
	})
	return roots, nil
}

func aggregateConnectionCounts(node *TreeNode) int {
	if node == nil {
		return 0
	}

	total := node.ConnectionCount
	for _, child := range node.Children {
		total += aggregateConnectionCounts(child)
	}
	node.ConnectionCount = total
	return total
}

func sortChildren(node *TreeNode) {
	sort.Slice(node.Children, func(i, j int) bool {
		return node.Children[i].Item.Name < node.Children[j].Item.Name
	})
	for _, child := range node.Children {
		sortChildren(child)
	}
}
