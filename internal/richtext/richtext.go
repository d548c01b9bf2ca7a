// Package richtext holds the canonical form of analysis text: paragraphs of
// plain segments, some of them emphasized. Narration text and display markup
// are both derived from segments, never from each other.
package richtext

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type Segment struct {
	Text   string `json:"text"`
	Strong bool   `json:"strong,omitempty"`
}

type Paragraph []Segment

type Text struct {
	Paragraphs []Paragraph `json:"paragraphs"`
}

var paragraphBreak = regexp.MustCompile(`\n[ \t\r]*\n`)

// Parse reads analysis markup. Only <strong>/<b> emphasis survives; block
// elements and blank lines separate paragraphs; script and style bodies
// are dropped.
func Parse(markup string) Text {
	b := &builder{}
	z := html.NewTokenizer(strings.NewReader(markup))
	strong := 0
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return b.done()
		case html.TextToken:
			if skip > 0 {
				continue
			}
			b.text(string(z.Text()), strong > 0)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch a := atom.Lookup(name); a {
			case atom.Strong, atom.B:
				if tt == html.StartTagToken {
					strong++
				}
			case atom.Script, atom.Style:
				if tt == html.StartTagToken {
					skip++
				}
			case atom.Br:
				b.text("\n", strong > 0)
			default:
				if isBlock(a) {
					b.flush()
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch a := atom.Lookup(name); a {
			case atom.Strong, atom.B:
				if strong > 0 {
					strong--
				}
			case atom.Script, atom.Style:
				if skip > 0 {
					skip--
				}
			default:
				if isBlock(a) {
					b.flush()
				}
			}
		}
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Header, atom.Li, atom.Ul, atom.Ol,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Table, atom.Tr:
		return true
	}
	return false
}

func (t Text) Empty() bool {
	return len(t.Paragraphs) == 0
}

// Plain is the narration text: paragraphs separated by a blank line.
func (t Text) Plain() string {
	parts := make([]string, 0, len(t.Paragraphs))
	for _, p := range t.Paragraphs {
		var sb strings.Builder
		for _, seg := range p {
			sb.WriteString(seg.Text)
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n\n")
}

// Source is the stored form: escaped text with <strong> as the only markup.
func (t Text) Source() string {
	parts := make([]string, 0, len(t.Paragraphs))
	for _, p := range t.Paragraphs {
		parts = append(parts, p.source())
	}
	return strings.Join(parts, "\n\n")
}

// HTML renders one block per paragraph for display.
func (t Text) HTML() string {
	var sb strings.Builder
	for _, p := range t.Paragraphs {
		sb.WriteString("<p>")
		sb.WriteString(strings.ReplaceAll(p.source(), "\n", "<br>"))
		sb.WriteString("</p>\n")
	}
	return sb.String()
}

func (p Paragraph) source() string {
	var sb strings.Builder
	for _, seg := range p {
		if seg.Strong {
			sb.WriteString("<strong>")
			sb.WriteString(escaper.Replace(seg.Text))
			sb.WriteString("</strong>")
			continue
		}
		sb.WriteString(escaper.Replace(seg.Text))
	}
	return sb.String()
}

const space = " \t\r\n"

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Plain is shorthand for Parse(markup).Plain().
func Plain(markup string) string {
	return Parse(markup).Plain()
}

type builder struct {
	paragraphs []Paragraph
	current    Paragraph
}

func (b *builder) text(s string, strong bool) {
	for i, part := range paragraphBreak.Split(s, -1) {
		if i > 0 {
			b.flush()
		}
		if part == "" {
			continue
		}
		if n := len(b.current); n > 0 && b.current[n-1].Strong == strong {
			b.current[n-1].Text += part
			continue
		}
		b.current = append(b.current, Segment{Text: part, Strong: strong})
	}
}

func (b *builder) flush() {
	p := b.current
	b.current = nil
	if len(p) == 0 {
		return
	}
	for len(p) > 0 {
		p[0].Text = strings.TrimLeft(p[0].Text, space)
		if p[0].Text != "" {
			break
		}
		p = p[1:]
	}
	for len(p) > 0 {
		last := len(p) - 1
		p[last].Text = strings.TrimRight(p[last].Text, space)
		if p[last].Text != "" {
			break
		}
		p = p[:last]
	}
	if len(p) == 0 {
		return
	}
	b.paragraphs = append(b.paragraphs, p)
}

func (b *builder) done() Text {
	b.flush()
	return Text{Paragraphs: b.paragraphs}
}
