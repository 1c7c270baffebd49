package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/taskgraph"
)

// GraphCmd prints every step and its ordering constraints.
type GraphCmd struct{}

func (g *GraphCmd) Run(_ *Global, root *CLI) error {
	s, err := newSession(root, sessionOptions{})
	if err != nil {
		return err
	}
	writeGraph(os.Stdout, s.graph.Describe())
	return nil
}

func writeGraph(w io.Writer, nodes []taskgraph.NodeInfo) {
	for _, n := range nodes {
		kind := "step"
		if n.Composite {
			kind = "group"
		}
		var parts []string
		if len(n.Sequential) > 0 {
			parts = append(parts, "then "+strings.Join(n.Sequential, " > "))
		}
		if len(n.Concurrent) > 0 {
			parts = append(parts, "together "+strings.Join(n.Concurrent, ", "))
		}
		line := fmt.Sprintf("%-20s %s", n.Name, kind)
		if len(parts) > 0 {
			line += "  " + strings.Join(parts, "; ")
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
