package thread

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteText writes the thread as indented plain text for terminals. Indent
// grows only for indented reply containers, so the visual depth cap holds
// here as well.
func WriteText(w io.Writer, s *Surface) error {
	if w == nil || s == nil {
		return nil
	}
	bw := bufio.NewWriter(w)
	if s.Notice != nil {
		fmt.Fprintf(bw, "! %s\n", s.Notice.Message)
	}
	if s.Loaded {
		if s.Empty {
			fmt.Fprintln(bw, "No comments yet. Be the first to comment!")
		}
		for _, n := range s.Roots {
			writeTextNode(bw, n, 0)
		}
	}
	return bw.Flush()
}

func writeTextNode(w *bufio.Writer, n *Node, indent int) {
	pad := strings.Repeat("  ", indent)

	header := fmt.Sprintf("%s[%s] %s", pad, n.Avatar, n.DisplayName)
	if n.Time != "" {
		header += " · " + n.Time
	}
	if n.Edited {
		header += " (edited)"
	}
	fmt.Fprintf(w, "%s  #%d\n", header, n.ID)

	if n.ReplyTo != nil {
		if n.ReplyTo.ParentDeleted {
			fmt.Fprintf(w, "%s  ↳ replying to %s\n", pad, n.ReplyTo.Username)
		} else {
			fmt.Fprintf(w, "%s  ↳ replying to @%s (#%d)\n", pad, n.ReplyTo.Username, n.ReplyTo.ParentID)
		}
	}
	for _, line := range strings.Split(n.Content, "\n") {
		fmt.Fprintf(w, "%s  %s\n", pad, line)
	}

	if !n.Deleted {
		var actions []string
		if n.Votes != nil {
			actions = append(actions, fmt.Sprintf("▲ %d ▼ %d", n.Votes.Likes, n.Votes.Dislikes))
		}
		if n.CanReply {
			actions = append(actions, "[reply]")
		}
		if n.CanEdit {
			actions = append(actions, "[edit]")
		}
		if n.CanDelete {
			actions = append(actions, "[delete]")
		}
		if len(actions) > 0 {
			fmt.Fprintf(w, "%s  %s\n", pad, strings.Join(actions, " "))
		}
	}

	if n.Thread == nil {
		return
	}
	child := indent
	if n.Thread.Indented {
		child++
	}
	childPad := strings.Repeat("  ", child)
	if t := n.Thread.Expand; t != nil {
		fmt.Fprintf(w, "%s[%s]\n", childPad, t.Label)
	}
	for _, r := range n.Thread.Replies {
		writeTextNode(w, r, child)
	}
	if t := n.Thread.Collapse; t != nil {
		fmt.Fprintf(w, "%s[%s]\n", childPad, t.Label)
	}
}
