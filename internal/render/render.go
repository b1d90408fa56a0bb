// Package render turns a template block list into channel-specific
// previews for the email and in-app channels.
package render

import (
	"errors"
	"regexp"
	"strings"

	"notifyconsole/internal/template"
	"notifyconsole/internal/variable"
)

// Channel is a delivery surface.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "inapp"
)

var ErrUnknownChannel = errors.New("unknown channel")

// ParseChannel normalizes s into a Channel.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "email", "correo":
		return ChannelEmail, nil
	case "inapp", "in-app", "in_app", "app":
		return ChannelInApp, nil
	}
	return "", ErrUnknownChannel
}

// Layout of a resolved variable row.
const (
	LayoutCard   = "card"
	LayoutInline = "inline"
)

// Options are the preview switches. They affect styling only.
type Options struct {
	Theme Theme `json:"theme"`
}

// Element is one rendered block. Both channels emit one element per block,
// in block order.
type Element struct {
	BlockID  string               `json:"blockId"`
	Kind     template.BlockKind   `json:"kind"`
	Text     string               `json:"text,omitempty"`
	Lines    []string             `json:"lines,omitempty"`
	Items    []string             `json:"items,omitempty"`
	Align    template.Alignment   `json:"align,omitempty"`
	Tone     template.Emphasis    `json:"tone,omitempty"`
	Variable *variable.Descriptor `json:"variable,omitempty"`
	Href     string               `json:"href,omitempty"`
	Layout   string               `json:"layout,omitempty"`
}

// Document is the output of a renderer.
type Document struct {
	Channel  Channel   `json:"channel"`
	Theme    Theme     `json:"theme"`
	Subject  string    `json:"subject"`
	Elements []Element `json:"elements"`
	Empty    bool      `json:"empty"`
	HTML     string    `json:"html"`
}

// Kinds returns the block kinds of the document in order. Email and in-app
// documents built from the same blocks report the same sequence.
func (d *Document) Kinds() []template.BlockKind {
	out := make([]template.BlockKind, len(d.Elements))
	for i, e := range d.Elements {
		out[i] = e.Kind
	}
	return out
}

// Preview dispatches to the renderer of channel.
func Preview(channel Channel, subject string, blocks []template.Block, ctx *variable.Context, opts Options) (*Document, error) {
	switch channel {
	case ChannelEmail:
		return RenderEmail(subject, blocks, ctx, opts)
	case ChannelInApp:
		return RenderInApp(subject, blocks, ctx, opts)
	}
	return nil, ErrUnknownChannel
}

// buildElements walks blocks once; layout differences between channels are
// limited to the variable layout and button navigation.
func buildElements(channel Channel, blocks []template.Block, ctx *variable.Context) []Element {
	out := make([]Element, 0, len(blocks))
	for _, b := range blocks {
		e := Element{BlockID: b.ID, Kind: b.Kind}
		switch b.Kind {
		case template.KindHeader:
			e.Text = b.Content
			e.Align = b.Alignment()
		case template.KindParagraph:
			e.Text = b.Content
			e.Lines = b.Lines()
			e.Align = b.Alignment()
		case template.KindVariable:
			d := variable.Resolve(b.Content, ctx)
			e.Variable = &d
			e.Layout = LayoutInline
			if channel == ChannelEmail {
				e.Layout = LayoutCard
			}
		case template.KindButton:
			e.Text = b.Content
			e.Align = b.Alignment()
			e.Tone = b.Emphasis()
			if channel == ChannelEmail {
				e.Href = strings.TrimSpace(b.Style.URL)
				if e.Href == "" {
					e.Href = "#"
				}
			}
		case template.KindDivider:
		case template.KindList:
			e.Items = b.ListItems()
			e.Align = b.Alignment()
		case template.KindAlert:
			e.Text = b.Content
			e.Lines = b.Lines()
			e.Align = b.Alignment()
			e.Tone = b.Emphasis()
		default:
			// Blocks of kinds added after this build still occupy their slot.
			e.Text = b.Content
		}
		out = append(out, e)
	}
	return out
}

var placeholder = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)

// ResolveText replaces {{variable}} placeholders in s with resolved values.
func ResolveText(s string, ctx *variable.Context) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		return variable.Resolve(name, ctx).Value
	})
}

func newDocument(channel Channel, subject string, blocks []template.Block, ctx *variable.Context, opts Options) *Document {
	ctx = variable.OrSample(ctx)
	return &Document{
		Channel:  channel,
		Theme:    opts.Theme.OrDefault(),
		Subject:  ResolveText(subject, ctx),
		Elements: buildElements(channel, blocks, ctx),
		Empty:    len(blocks) == 0,
	}
}
