package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/gomail.v2"

	"notifyconsole/internal/template"
)

var ErrNotEmail = errors.New("document is not an email preview")

// ComposeMessage wraps an email document into a MIME message with a plain
// text part and the HTML alternative. Nothing is sent.
func ComposeMessage(doc *Document, from string, to ...string) (*gomail.Message, error) {
	if doc == nil || doc.Channel != ChannelEmail {
		return nil, ErrNotEmail
	}
	msg := gomail.NewMessage()
	if from != "" {
		msg.SetHeader("From", from)
	}
	if len(to) > 0 {
		msg.SetHeader("To", to...)
	}
	msg.SetHeader("Subject", doc.Subject)
	msg.SetBody("text/plain", PlainText(doc))
	msg.AddAlternative("text/html", doc.HTML)
	return msg, nil
}

// WriteEML writes doc as an .eml file to w.
func WriteEML(w io.Writer, doc *Document, from string, to ...string) error {
	msg, err := ComposeMessage(doc, from, to...)
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		return fmt.Errorf("write eml: %w", err)
	}
	return nil
}

// PlainText flattens a document for text-only clients.
func PlainText(doc *Document) string {
	var b strings.Builder
	for _, e := range doc.Elements {
		switch e.Kind {
		case template.KindHeader:
			b.WriteString(strings.ToUpper(e.Text))
		case template.KindParagraph, template.KindAlert:
			b.WriteString(strings.Join(e.Lines, "\n"))
		case template.KindVariable:
			fmt.Fprintf(&b, "%s: %s", e.Variable.Label, e.Variable.Value)
		case template.KindButton:
			if e.Href != "" && e.Href != "#" {
				fmt.Fprintf(&b, "%s: %s", e.Text, e.Href)
			} else {
				b.WriteString(e.Text)
			}
		case template.KindDivider:
			b.WriteString("----------")
		case template.KindList:
			for i, it := range e.Items {
				if i > 0 {
					b.WriteByte('\n')
				}
				b.WriteString("- " + it)
			}
		default:
			b.WriteString(e.Text)
		}
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
