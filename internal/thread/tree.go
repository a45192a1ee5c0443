package thread

// BuildTree nests a flat list of comments by ParentID for sources that cannot
// serve the tree already nested. Input order is kept among siblings and among
// roots. A comment whose parent is not in the list becomes a root. Replies
// already present on the inputs are discarded.
func BuildTree(flat []*Comment) []*Comment {
	byID := make(map[uint]*Comment, len(flat))
	for _, c := range flat {
		if c == nil {
			continue
		}
		c.Replies = nil
		byID[c.ID] = c
	}

	roots := make([]*Comment, 0)
	for _, c := range flat {
		if c == nil {
			continue
		}
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok && parent != c {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots
}
