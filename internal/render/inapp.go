package render

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"

	"notifyconsole/internal/template"
	"notifyconsole/internal/variable"
)

const inAppHTML = `{{define "inapp"}}<div class="notif notif-{{.Theme}}" style="{{.Root}}">
<div class="notif-subject" style="{{.SubjectStyle}}">{{.Subject}}</div>
{{- if .Empty}}
<div class="notif-empty" style="{{.EmptyStyle}}">Sin contenido</div>
{{- end}}
{{- range .Rows}}
{{template "inapp-block" .}}
{{- end}}
</div>
{{end}}
{{define "inapp-block"}}
{{- if eq .Kind "header"}}<div class="notif-title" style="{{.Inner}}">{{.Text}}</div>
{{- else if eq .Kind "paragraph"}}<div class="notif-text" style="{{.Inner}}">{{range $i, $l := .Lines}}{{if $i}}<br>{{end}}{{$l}}{{end}}</div>
{{- else if eq .Kind "variable"}}<div class="notif-var" style="{{.Inner}}"><span class="notif-var-icon" data-icon="{{.Variable.Icon}}">{{icon .Variable.Icon}}</span> <span class="notif-var-label" style="{{.Label}}">{{.Variable.Label}}:</span> <span class="notif-var-value" style="{{.Value}}">{{.Variable.Value}}</span></div>
{{- else if eq .Kind "button"}}<div class="notif-action" style="{{.Inner}}"><span class="notif-button" style="{{.Value}}">{{.Text}}</span></div>
{{- else if eq .Kind "divider"}}<div class="notif-divider" style="{{.Inner}}"></div>
{{- else if eq .Kind "list"}}<ul class="notif-list" style="{{.Inner}}">{{range .Items}}<li>{{.}}</li>{{end}}</ul>
{{- else if eq .Kind "alert"}}<div class="notif-alert notif-alert-{{.Tone}}" style="{{.Inner}}">{{range $i, $l := .Lines}}{{if $i}}<br>{{end}}{{$l}}{{end}}</div>
{{- else}}<div class="notif-text" style="{{.Inner}}">{{.Text}}</div>
{{- end}}
{{- end}}`

var inAppTemplate = htmltemplate.Must(htmltemplate.New("inapp").Funcs(htmltemplate.FuncMap{"icon": iconGlyph}).Parse(inAppHTML))

type inAppView struct {
	Theme        Theme
	Subject      string
	Empty        bool
	Root         htmltemplate.CSS
	SubjectStyle htmltemplate.CSS
	EmptyStyle   htmltemplate.CSS
	Rows         []styledElement
}

// RenderInApp renders blocks as a compact notification card fragment.
// Buttons keep their label but carry no navigation.
func RenderInApp(subject string, blocks []template.Block, ctx *variable.Context, opts Options) (*Document, error) {
	doc := newDocument(ChannelInApp, subject, blocks, ctx, opts)
	p := PaletteFor(doc.Theme)

	view := inAppView{
		Theme:        doc.Theme,
		Subject:      doc.Subject,
		Empty:        doc.Empty,
		Root:         css("background-color", p.Surface, "color", p.Text, "border", "1px solid "+p.Border, "border-radius", "8px", "padding", "12px", "font-size", "13px", "max-width", "360px"),
		SubjectStyle: css("font-weight", "700", "font-size", "14px", "margin-bottom", "6px"),
		EmptyStyle:   css("color", p.Muted, "font-style", "italic"),
	}
	for _, e := range doc.Elements {
		view.Rows = append(view.Rows, inAppStyles(e, p))
	}

	var buf bytes.Buffer
	if err := inAppTemplate.ExecuteTemplate(&buf, "inapp", view); err != nil {
		return nil, fmt.Errorf("render in-app: %w", err)
	}
	doc.HTML = buf.String()
	return doc, nil
}

func inAppStyles(e Element, p Palette) styledElement {
	s := styledElement{Element: e}
	align := string(e.Align)
	if align == "" {
		align = string(template.AlignLeft)
	}
	switch e.Kind {
	case template.KindHeader:
		s.Inner = css("font-weight", "600", "font-size", "14px", "text-align", align, "margin", "4px 0")
	case template.KindParagraph, template.KindList:
		s.Inner = css("text-align", align, "margin", "4px 0", "line-height", "18px")
	case template.KindVariable:
		s.Inner = css("margin", "2px 0", "white-space", "nowrap")
		s.Label = css("color", p.Muted)
		s.Value = css("font-weight", "600", "color", p.valueColor(e.Variable.Tone, e.Variable.Muted))
	case template.KindButton:
		s.Inner = css("text-align", align, "margin", "6px 0")
		s.Value = css("display", "inline-block", "padding", "4px 10px", "border-radius", "4px", "font-weight", "600", "border", "1px solid "+p.Accent, "color", p.Accent)
	case template.KindDivider:
		s.Inner = css("border-top", "1px solid "+p.Border, "margin", "6px 0")
	case template.KindAlert:
		t := p.tone(e.Tone)
		s.Inner = css("padding", "6px 8px", "border-radius", "4px", "margin", "4px 0", "text-align", align, "background-color", t.Background, "color", t.Foreground)
	default:
		s.Inner = css("margin", "4px 0")
	}
	return s
}
