package render

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"

	"notifyconsole/internal/template"
	"notifyconsole/internal/variable"
)

const emailHTML = `{{define "email"}}<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Subject}}</title>
</head>
<body style="{{.Page}}">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="{{.Page}}">
<tr><td align="center" style="padding:24px 12px;">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="{{.Body}}">
{{- if .Empty}}
<tr><td style="{{.EmptyStyle}}">Esta plantilla todavía no tiene bloques.</td></tr>
{{- end}}
{{- range .Rows}}
<tr><td style="{{.Cell}}">{{template "email-block" .}}</td></tr>
{{- end}}
</table>
</td></tr>
</table>
</body>
</html>
{{end}}
{{define "email-block"}}
{{- if eq .Kind "header"}}<h1 style="{{.Inner}}">{{.Text}}</h1>
{{- else if eq .Kind "paragraph"}}<p style="{{.Inner}}">{{range $i, $l := .Lines}}{{if $i}}<br>{{end}}{{$l}}{{end}}</p>
{{- else if eq .Kind "variable"}}<table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="{{.Inner}}"><tr><td width="28" style="{{.Label}}" data-icon="{{.Variable.Icon}}">{{icon .Variable.Icon}}</td><td style="{{.Label}}">{{.Variable.Label}}</td><td align="right" style="{{.Value}}">{{.Variable.Value}}</td></tr></table>
{{- else if eq .Kind "button"}}<div style="{{.Inner}}"><a href="{{.Href}}" target="_blank" style="{{.Value}}">{{.Text}}</a></div>
{{- else if eq .Kind "divider"}}<hr style="{{.Inner}}">
{{- else if eq .Kind "list"}}<ul style="{{.Inner}}">{{range .Items}}<li style="margin:0 0 4px 0;">{{.}}</li>{{end}}</ul>
{{- else if eq .Kind "alert"}}<div role="alert" style="{{.Inner}}">{{range $i, $l := .Lines}}{{if $i}}<br>{{end}}{{$l}}{{end}}</div>
{{- else}}<p style="{{.Inner}}">{{.Text}}</p>
{{- end}}
{{- end}}`

var emailTemplate = htmltemplate.Must(htmltemplate.New("email").Funcs(htmltemplate.FuncMap{"icon": iconGlyph}).Parse(emailHTML))

type emailView struct {
	Subject    string
	Empty      bool
	Page       htmltemplate.CSS
	Body       htmltemplate.CSS
	EmptyStyle htmltemplate.CSS
	Rows       []styledElement
}

// styledElement is an Element plus the inline CSS of its parts.
type styledElement struct {
	Element
	Cell  htmltemplate.CSS
	Inner htmltemplate.CSS
	Label htmltemplate.CSS
	Value htmltemplate.CSS
}

// RenderEmail renders blocks as an HTML email with inline styles.
// A nil ctx uses the sample preview context.
func RenderEmail(subject string, blocks []template.Block, ctx *variable.Context, opts Options) (*Document, error) {
	doc := newDocument(ChannelEmail, subject, blocks, ctx, opts)
	p := PaletteFor(doc.Theme)

	view := emailView{
		Subject:    doc.Subject,
		Empty:      doc.Empty,
		Page:       css("margin", "0", "padding", "0", "background-color", p.Background),
		Body:       css("background-color", p.Surface, "border", "1px solid "+p.Border, "border-radius", "8px", "font-family", "Arial, Helvetica, sans-serif", "color", p.Text),
		EmptyStyle: css("padding", "32px 24px", "text-align", "center", "color", p.Muted, "font-size", "14px"),
	}
	for _, e := range doc.Elements {
		view.Rows = append(view.Rows, emailStyles(e, p))
	}

	var buf bytes.Buffer
	if err := emailTemplate.ExecuteTemplate(&buf, "email", view); err != nil {
		return nil, fmt.Errorf("render email: %w", err)
	}
	doc.HTML = buf.String()
	return doc, nil
}

func emailStyles(e Element, p Palette) styledElement {
	s := styledElement{Element: e, Cell: css("padding", "8px 24px")}
	align := string(e.Align)
	if align == "" {
		align = string(template.AlignLeft)
	}
	switch e.Kind {
	case template.KindHeader:
		s.Cell = css("padding", "24px 24px 8px 24px")
		s.Inner = css("margin", "0", "font-size", "22px", "line-height", "28px", "font-weight", "700", "text-align", align, "color", p.Text)
	case template.KindParagraph:
		s.Inner = css("margin", "0", "font-size", "15px", "line-height", "22px", "text-align", align, "color", p.Text)
	case template.KindVariable:
		s.Inner = css("background-color", p.Card, "border", "1px solid "+p.Border, "border-radius", "6px", "padding", "10px 12px")
		s.Label = css("font-size", "13px", "color", p.Muted, "padding", "2px 4px")
		s.Value = css("font-size", "14px", "font-weight", "600", "padding", "2px 4px", "color", p.valueColor(e.Variable.Tone, e.Variable.Muted))
	case template.KindButton:
		s.Cell = css("padding", "16px 24px")
		s.Inner = css("text-align", align)
		t := p.tone(e.Tone)
		bg := p.Accent
		if e.Tone != template.EmphasisInfo {
			bg = t.Foreground
		}
		s.Value = css("display", "inline-block", "padding", "10px 20px", "border-radius", "6px", "text-decoration", "none", "font-weight", "600", "font-size", "14px", "background-color", bg, "color", p.AccentText)
	case template.KindDivider:
		s.Inner = css("border", "0", "border-top", "1px solid "+p.Border, "margin", "8px 0")
	case template.KindList:
		s.Inner = css("margin", "0", "padding-left", "20px", "font-size", "15px", "line-height", "22px", "text-align", align, "color", p.Text)
	case template.KindAlert:
		t := p.tone(e.Tone)
		s.Inner = css("padding", "12px 16px", "border-radius", "6px", "font-size", "14px", "text-align", align, "background-color", t.Background, "color", t.Foreground, "border", "1px solid "+t.Border)
	default:
		s.Inner = css("margin", "0", "color", p.Text)
	}
	return s
}

// css builds a trusted declaration list from property/value pairs.
// Values come from the palettes and fixed layout constants only.
func css(pairs ...string) htmltemplate.CSS {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(pairs[i])
		b.WriteByte(':')
		b.WriteString(pairs[i+1])
		b.WriteByte(';')
	}
	return htmltemplate.CSS(b.String())
}

var glyphs = map[string]string{
	"file-text":      "📄",
	"align-left":     "📝",
	"calendar":       "📅",
	"user":           "👤",
	"user-plus":      "👤",
	"layers":         "🗂",
	"server":         "🖥",
	"shield":         "🛡",
	"alert-triangle": "⚠",
	"activity":       "📈",
}

// iconGlyph maps an icon name to a character usable in mail clients.
func iconGlyph(name string) string {
	if g, ok := glyphs[name]; ok {
		return g
	}
	return "•"
}
