// Package render formats a query result value as text for the shell's
// output. The five forms mirror the shapes the engine can return: a
// single SAO, an ObjectList of the same (type,id) from multiple sources
// grouped together, an ObjectList spanning multiple ids, an
// ObjectGrouping, and bare primitives.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oxhq/saq/internal/value"
)

// Render formats v for display.
func Render(v value.Value) string {
	var sb strings.Builder
	render(&sb, v, 0)
	return sb.String()
}

func render(sb *strings.Builder, v value.Value, indent int) {
	switch tv := v.(type) {
	case nil:
		sb.WriteString("null")
	case value.Null:
		sb.WriteString("null")
	case value.AbsorbingNone:
		sb.WriteString("<none>")
	case value.Str:
		sb.WriteString(strconv.Quote(string(tv)))
	case value.Int:
		sb.WriteString(strconv.FormatInt(int64(tv), 10))
	case value.Float:
		sb.WriteString(strconv.FormatFloat(float64(tv), 'g', -1, 64))
	case value.Bool:
		sb.WriteString(strconv.FormatBool(bool(tv)))
	case value.List:
		renderList(sb, tv, indent)
	case *value.Map:
		renderMap(sb, tv, indent)
	case *value.SAO:
		renderSAO(sb, tv, indent)
	case *value.ObjectList:
		renderObjectList(sb, tv, indent)
	case *value.ObjectGrouping:
		renderGrouping(sb, tv, indent)
	default:
		fmt.Fprintf(sb, "%v", v)
	}
}

func pad(sb *strings.Builder, indent int) {
	sb.WriteString(strings.Repeat("  ", indent))
}

func renderList(sb *strings.Builder, l value.List, indent int) {
	if len(l) == 0 {
		sb.WriteString("[]")
		return
	}
	sb.WriteString("[\n")
	for _, item := range l {
		pad(sb, indent+1)
		render(sb, item, indent+1)
		sb.WriteString("\n")
	}
	pad(sb, indent)
	sb.WriteString("]")
}

func renderMap(sb *strings.Builder, m *value.Map, indent int) {
	if m.Len() == 0 {
		sb.WriteString("{}")
		return
	}
	sb.WriteString("{\n")
	for _, k := range m.Keys() {
		pad(sb, indent+1)
		fmt.Fprintf(sb, "%s: ", k)
		v, _ := m.Get(k)
		render(sb, v, indent+1)
		sb.WriteString("\n")
	}
	pad(sb, indent)
	sb.WriteString("}")
}

// renderSAO writes the single-SAO form: a header line "<id> (type @source)"
// followed by its user fields.
func renderSAO(sb *strings.Builder, o *value.SAO, indent int) {
	fmt.Fprintf(sb, "%s (%s @%s) {\n", o.ID, strings.Join(o.Types, "/"), o.Source)
	for _, k := range o.Fields.Keys() {
		pad(sb, indent+1)
		fmt.Fprintf(sb, "%s: ", k)
		v, _ := o.Fields.Get(k)
		render(sb, v, indent+1)
		sb.WriteString("\n")
	}
	pad(sb, indent)
	sb.WriteString("}")
}

func logicalKey(o *value.SAO) string {
	return strings.Join(o.Types, "/") + "#" + o.ID
}

// renderObjectList picks between the two ObjectList forms: when every
// member shares the same (type,id) it's one logical object contributed by
// several sources, rendered as a grouped header with a per-source block
// for each; otherwise the list spans multiple ids and each SAO renders as
// a single "type#id@source" line.
func renderObjectList(sb *strings.Builder, l *value.ObjectList, indent int) {
	if l.Len() == 0 {
		sb.WriteString("(empty)")
		return
	}

	sameLogical := true
	first := logicalKey(l.Items[0])
	for _, o := range l.Items[1:] {
		if logicalKey(o) != first {
			sameLogical = false
			break
		}
	}

	if sameLogical {
		fmt.Fprintf(sb, "%s (%d sources):\n", first, l.Len())
		for i, o := range l.Items {
			if i > 0 {
				sb.WriteString("\n")
			}
			pad(sb, indent+1)
			render(sb, o, indent+1)
		}
		return
	}

	for i, o := range l.Items {
		if i > 0 {
			sb.WriteString("\n")
		}
		pad(sb, indent)
		fmt.Fprintf(sb, "%s#%s@%s", strings.Join(o.Types, "/"), o.ID, o.Source)
	}
}

func renderGrouping(sb *strings.Builder, g *value.ObjectGrouping, indent int) {
	if g.Len() == 0 {
		sb.WriteString("(no groups)")
		return
	}
	first := true
	g.Each(func(key value.GroupKey, members *value.ObjectList) {
		if !first {
			sb.WriteString("\n")
		}
		first = false
		pad(sb, indent)
		sb.WriteString("group ")
		for i, k := range key {
			if i > 0 {
				sb.WriteString(", ")
			}
			render(sb, k, indent)
		}
		sb.WriteString(":\n")
		renderObjectList(sb, members, indent+1)
		sb.WriteString("\n")
	})
}
