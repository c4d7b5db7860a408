package tui

import (
	"fmt"
	"strings"

	"github.com/1broseidon/displayd/internal/ipc"
)

func renderLayoutTab(status *ipc.StatusData) string {
	if status == nil {
		return "loading...\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("virtual screen: %dx%d",
		status.VirtualScreenSize[0], status.VirtualScreenSize[1])))
	if status.DatabaseDirty {
		fmt.Fprintln(&b, "database has unsaved changes")
	}
	b.WriteString("\n")

	if len(status.Outputs) == 0 {
		b.WriteString("no outputs reported\n")
		return b.String()
	}

	for _, o := range status.Outputs {
		state := "disabled"
		if o.Enabled {
			state = "enabled"
		}
		fmt.Fprintf(&b, "%-10s %-8s %4dx%-4d at (%d,%d)", o.Name, state, o.Width, o.Height, o.X, o.Y)
		if o.Rotation != 0 || o.Reflect {
			fmt.Fprintf(&b, " rotation=%d reflect=%v", o.Rotation, o.Reflect)
		}
		b.WriteString("\n")
	}
	return b.String()
}
