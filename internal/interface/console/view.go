package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/yanqian/ask-console/internal/domain/page"
)

// View renders the page state as plain text.
type View struct {
	mu  sync.Mutex
	out io.Writer
}

// NewView writes to out.
func NewView(out io.Writer) *View {
	return &View{out: out}
}

func (v *View) RenderOptions(options []page.ResponseTypeOption, selected string) {
	var b strings.Builder
	b.WriteString("Response types:\n")
	for i, opt := range options {
		marker := " "
		if opt.Name == selected {
			marker = "*"
		}
		fmt.Fprintf(&b, " %s %d) %s", marker, i+1, opt.Name)
		if opt.About != "" {
			fmt.Fprintf(&b, " - %s", opt.About)
		}
		b.WriteByte('\n')
	}
	v.write(b.String())
}

func (v *View) RenderPanel(panel page.Panel) {
	var b strings.Builder
	switch panel.State {
	case page.StateLoading:
		b.WriteString("... waiting for answer\n")
	case page.StateError:
		fmt.Fprintf(&b, "Error: %s\n", panel.Error)
	case page.StateSuccess:
		if panel.Warning != "" {
			fmt.Fprintf(&b, "Note: %s\n", panel.Warning)
		}
		b.WriteString(panel.Answer)
		b.WriteByte('\n')
		if len(panel.Links) > 0 {
			b.WriteString("Resources:\n")
			for _, link := range panel.Links {
				fmt.Fprintf(&b, "  - %s <%s>\n", link.Text, link.URL)
			}
		}
	default:
		return
	}
	v.write(b.String())
}

func (v *View) Alert(message string) {
	v.write("[notice] " + message + "\n")
}

func (v *View) write(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, _ = io.WriteString(v.out, s)
}

var _ page.View = (*View)(nil)
