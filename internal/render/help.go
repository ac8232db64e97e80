package render

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// Help renders the markdown help text of the builtin directives. Glamour
// falls back to plain text when rendering fails (e.g. no TTY).
func (r *Renderer) Help(markdown string) {
	if r.profile == termenv.Ascii {
		fmt.Fprintln(r.out, markdown)
		return
	}
	g, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		fmt.Fprintln(r.out, markdown)
		return
	}
	rendered, err := g.Render(markdown)
	if err != nil {
		fmt.Fprintln(r.out, markdown)
		return
	}
	fmt.Fprint(r.out, rendered)
}
