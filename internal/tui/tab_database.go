package tui

import (
	"fmt"
	"strings"

	"github.com/1broseidon/displayd/internal/ipc"
)

func renderDatabaseTab(db *ipc.ListDBData) string {
	if db == nil {
		return "loading...\n"
	}
	if len(db.Entries) == 0 {
		return "no learned layouts yet\n"
	}

	var b strings.Builder
	for _, entry := range db.Entries {
		fmt.Fprintf(&b, "%s\n", headerStyle.Render(entry.IdentitySet))
		for _, o := range entry.Outputs {
			fmt.Fprintf(&b, "  %-24s rotation=%d reflect=%v", o.Identity, o.Rotation, o.Reflect)
			if len(o.Relations) > 0 {
				rels := make([]string, 0, len(o.Relations))
				for _, r := range o.Relations {
					rels = append(rels, fmt.Sprintf("%s %s", r.Direction, r.Neighbour))
				}
				fmt.Fprintf(&b, " [%s]", strings.Join(rels, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
