// Package render formats listings, trees, values and events for the
// terminal. Colors degrade gracefully on dumb terminals via termenv.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/nodesh/nodesh/pkg/cpon"
	"github.com/nodesh/nodesh/pkg/domain"
)

// Renderer writes session output. All rendering goes through one value so
// event flushing and command output share the same writer discipline.
type Renderer struct {
	out     io.Writer
	profile termenv.Profile
}

// New creates a renderer for the given writer, detecting color support.
func New(out io.Writer) *Renderer {
	return &Renderer{out: out, profile: termenv.NewOutput(out).Profile}
}

// NewPlain creates a renderer that never emits escape sequences; used by
// tests and non-TTY output.
func NewPlain(out io.Writer) *Renderer {
	return &Renderer{out: out, profile: termenv.Ascii}
}

func (r *Renderer) style(s string, color termenv.Color) string {
	if color == nil {
		return s
	}
	return termenv.String(s).Foreground(color).String()
}

func (r *Renderer) color(ansi termenv.ANSIColor) termenv.Color {
	if r.profile == termenv.Ascii {
		return nil
	}
	return ansi
}

// Printf writes plain formatted output.
func (r *Renderer) Printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// Println writes a plain line.
func (r *Renderer) Println(args ...any) {
	fmt.Fprintln(r.out, args...)
}

// Value renders a call result in canonical textual form.
func (r *Renderer) Value(v any) {
	fmt.Fprintln(r.out, cpon.Encode(v))
}

// Error reports a recoverable failure.
func (r *Renderer) Error(err error) {
	fmt.Fprintln(r.out, r.style(err.Error(), r.color(termenv.ANSIRed)))
}

// Event renders one buffered signal notification.
func (r *Renderer) Event(path, source, signal string, value any) {
	label := fmt.Sprintf("%s:%s:%s: ", path, source, signal)
	fmt.Fprintf(r.out, "%s%s\n", r.style(label, r.color(termenv.ANSIMagenta)), cpon.Encode(value))
}

// Prompt renders the interactive prompt for the current path. Paths the
// cache knows nothing about show red, known ones blue.
func (r *Renderer) Prompt(path domain.NodePath, known bool) string {
	color := r.color(termenv.ANSIBrightBlue)
	if !known {
		color = r.color(termenv.ANSIBrightRed)
	}
	return r.style(path.String(), color) + "> "
}

// nodeColor picks the listing color of a child node: yellow when it has a
// getter, blue when it has children, gray for dot-names.
func (r *Renderer) nodeColor(name string, entry *domain.NodeEntry) termenv.Color {
	if entry != nil {
		if _, ok := entry.Method("get"); ok {
			return r.color(termenv.ANSIYellow)
		}
		if len(entry.Children) > 0 {
			return r.color(termenv.ANSIBlue)
		}
	}
	if strings.HasPrefix(name, ".") {
		return r.color(termenv.ANSIBrightBlack)
	}
	return nil
}

func (r *Renderer) methodColor(m domain.MethodDesc, hasSignals bool) termenv.Color {
	switch {
	case m.Name == "ls" || m.Name == "dir":
		return r.color(termenv.ANSIBrightBlack)
	case m.Flags&domain.FlagSetter != 0:
		return r.color(termenv.ANSIYellow)
	case m.Flags&domain.FlagGetter != 0 && hasSignals:
		return r.color(termenv.ANSIMagenta)
	case m.Flags&domain.FlagGetter != 0:
		return r.color(termenv.ANSIGreen)
	case hasSignals:
		return r.color(termenv.ANSIMagenta)
	default:
		return nil
	}
}

// LsItem is one row of a children listing.
type LsItem struct {
	Name  string
	Entry *domain.NodeEntry
	Value any
	Got   bool
}

// Ls renders a children listing. When any row carries a prefetched value
// the listing becomes one row per line with aligned values; otherwise the
// names flow on a single line.
func (r *Renderer) Ls(items []LsItem) {
	withValues := false
	width := 0
	for _, it := range items {
		if it.Got {
			withValues = true
		}
		if len(it.Name) > width {
			width = len(it.Name)
		}
	}
	if !withValues {
		names := make([]string, 0, len(items))
		for _, it := range items {
			names = append(names, r.style(quoteName(it.Name), r.nodeColor(it.Name, it.Entry)))
		}
		fmt.Fprintln(r.out, strings.Join(names, " "))
		return
	}
	for _, it := range items {
		pad := strings.Repeat(" ", width-len(it.Name))
		line := pad + r.style(quoteName(it.Name), r.nodeColor(it.Name, it.Entry))
		if it.Got {
			line += "  " + cpon.Encode(it.Value)
		}
		fmt.Fprintln(r.out, line)
	}
}

// DirItem is one row of a method listing.
type DirItem struct {
	Method domain.MethodDesc
	Value  any
	Got    bool
}

// Dir renders a method listing followed by the signal labels, mirroring the
// Ls layout rules.
func (r *Renderer) Dir(items []DirItem, signals []domain.SignalDesc) {
	withValues := false
	width := 0
	for _, it := range items {
		if it.Got {
			withValues = true
		}
		if len(it.Method.Name) > width {
			width = len(it.Method.Name)
		}
	}
	if withValues {
		for _, it := range items {
			pad := strings.Repeat(" ", width-len(it.Method.Name))
			line := pad + r.style(quoteName(it.Method.Name), r.methodColor(it.Method, false))
			if it.Got {
				line += "  " + cpon.Encode(it.Value)
			}
			fmt.Fprintln(r.out, line)
		}
	} else if len(items) > 0 {
		names := make([]string, 0, len(items))
		for _, it := range items {
			names = append(names, r.style(quoteName(it.Method.Name), r.methodColor(it.Method, false)))
		}
		fmt.Fprintln(r.out, strings.Join(names, " "))
	}
	if len(signals) > 0 {
		labels := make([]string, 0, len(signals))
		for _, s := range signals {
			labels = append(labels, r.style(s.Source+":"+s.Name, r.color(termenv.ANSIMagenta)))
		}
		fmt.Fprintln(r.out, strings.Join(labels, " "))
	}
}

// TreeSource is the cache view the tree rendering needs.
type TreeSource interface {
	Lookup(p domain.NodePath) (domain.NodeEntry, bool)
}

// Tree renders the cached subtree under path with box-drawing guides.
func (r *Renderer) Tree(src TreeSource, path domain.NodePath) {
	entry, ok := src.Lookup(path)
	if !ok {
		return
	}
	r.treeLevel(src, path, entry, nil)
}

func (r *Renderer) treeLevel(src TreeSource, path domain.NodePath, entry domain.NodeEntry, cols []bool) {
	for i, name := range entry.Children {
		last := i == len(entry.Children)-1
		var b strings.Builder
		for _, more := range cols {
			if more {
				b.WriteString("│ ")
			} else {
				b.WriteString("  ")
			}
		}
		if last {
			b.WriteString("└─")
		} else {
			b.WriteString("├─")
		}
		child := path.Child(name)
		centry, ok := src.Lookup(child)
		var ep *domain.NodeEntry
		if ok {
			ep = &centry
		}
		fmt.Fprintln(r.out, b.String()+r.style(quoteName(name), r.nodeColor(name, ep)))
		if ok {
			r.treeLevel(src, child, centry, append(cols, !last))
		}
	}
}

// quoteName protects names containing whitespace in listings.
func quoteName(name string) string {
	if strings.IndexFunc(name, func(r rune) bool { return r == ' ' || r == '\t' }) >= 0 {
		return fmt.Sprintf("%q", name)
	}
	return name
}
