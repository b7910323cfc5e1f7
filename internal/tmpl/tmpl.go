package tmpl

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"storefront.chapter42.de/mailer/internal/data"
)

// View is what every message template is executed against.
type View struct {
	StoreName string
	Order     data.Order
	Subject   string
	Details   string
	Now       time.Time
}

type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

type messageTemplate struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// Set holds the parsed templates for every message kind.
type Set struct {
	byKind map[data.Kind]messageTemplate
}

var funcs = map[string]any{
	"money": func(amount float64, currency string) string {
		if currency == "" {
			currency = "EUR"
		}
		return fmt.Sprintf("%.2f %s", amount, currency)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02.01.2006 15:04")
	},
	"upper": strings.ToUpper,
}

func PrepareTemplates() (*Set, error) {
	set := &Set{byKind: make(map[data.Kind]messageTemplate, len(sources))}
	for kind, src := range sources {
		subject, err := texttemplate.New(string(kind) + "_subject").Funcs(funcs).Parse(src.subject)
		if err != nil {
			return nil, fmt.Errorf("error in subject template [%s]: %w", kind, err)
		}
		text, err := texttemplate.New(string(kind) + "_text").Funcs(funcs).Parse(src.text)
		if err != nil {
			return nil, fmt.Errorf("error in text template [%s]: %w", kind, err)
		}
		html, err := htmltemplate.New(string(kind) + "_html").Funcs(funcs).Parse(src.html)
		if err != nil {
			return nil, fmt.Errorf("error in html template [%s]: %w", kind, err)
		}
		set.byKind[kind] = messageTemplate{subject: subject, text: text, html: html}
	}
	return set, nil
}

func (s *Set) Render(kind data.Kind, view View) (Rendered, error) {
	t, ok := s.byKind[kind]
	if !ok {
		return Rendered{}, fmt.Errorf("no template for message kind %q", kind)
	}

	var out Rendered
	var buf bytes.Buffer
	if err := t.subject.Execute(&buf, view); err != nil {
		return Rendered{}, fmt.Errorf("render subject [%s]: %w", kind, err)
	}
	out.Subject = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := t.text.Execute(&buf, view); err != nil {
		return Rendered{}, fmt.Errorf("render text [%s]: %w", kind, err)
	}
	out.Text = buf.String()

	buf.Reset()
	if err := t.html.Execute(&buf, view); err != nil {
		return Rendered{}, fmt.Errorf("render html [%s]: %w", kind, err)
	}
	out.HTML = buf.String()

	return out, nil
}

// ParseEndpoint parses a relay endpoint such as "/messages/{{.Kind}}".
func ParseEndpoint(name, src string) (*texttemplate.Template, error) {
	tpl, err := texttemplate.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("error in endpoint template [%s]: %w", name, err)
	}
	return tpl, nil
}

func RenderEndpoint(tpl *texttemplate.Template, msg data.Message) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, msg); err != nil {
		return "", err
	}
	return buf.String(), nil
}
