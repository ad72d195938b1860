package core

import (
	"bytes"
	"context"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/coffeeduty/fs"
)

const emailTemplateDir = "assets/templates/email"

var (
	templates tmplCache
	tmplErr   error
	tmplInit  sync.Once

	ErrTemplateNotFound = errors.New("email template not found")
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	EmailMessage struct {
		To      []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string

		rendered bool
	}

	// SiteInfo is made available to every email template.
	SiteInfo struct {
		AppName         string
		FrontendBaseURL string
	}

	ContextData struct {
		SiteInfo
		Data interface{}
	}

	// EmailService is any service that can deliver an email.
	// Send must honour ctx cancellation and never panic on transport failures.
	EmailService interface {
		Send(ctx context.Context, msg *EmailMessage) error
		Backend() string
	}
)

func (m *EmailMessage) getTemplate(ext string) (interface{}, bool) {
	cache, ok := templates[m.TemplateName]
	if !ok {
		return nil, ok
	}
	tmplEntry, ok := cache[ext]
	return tmplEntry, ok
}

func (m *EmailMessage) renderText(data ContextData) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".txt")
	if !ok {
		return errors.Wrap(ErrTemplateNotFound, m.TemplateName+".txt")
	}
	tmpl := tmplEntry.(*texttmpl.Template)

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, m.TemplateName+".txt", data); err != nil {
		return err
	}
	m.TextContent = strings.TrimSpace(buff.String())
	return nil
}

func (m *EmailMessage) renderHTML(data ContextData) error {
	if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".gohtml")
	if !ok {
		return nil // html part is optional
	}
	tmpl := tmplEntry.(*htmltmpl.Template)

	var buff bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buff, m.TemplateName+".gohtml", data); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

// Render fills TextContent (and HTMLContent when an html template exists).
// Rendering an already rendered message is a no-op.
func (m *EmailMessage) Render(site SiteInfo) error {
	if m.rendered {
		return nil
	}
	if m.TemplateName != "" {
		tmplInit.Do(parseTemplates) // only execute once during first request
		if tmplErr != nil {
			return errors.Wrap(tmplErr, "parsing email templates")
		}
	}
	data := ContextData{SiteInfo: site, Data: m.TemplateData}
	if err := m.renderText(data); err != nil {
		return errors.Wrap(err, "rendering text")
	}
	if err := m.renderHTML(data); err != nil {
		return errors.Wrap(err, "rendering html")
	}
	m.rendered = true
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// JoinAddresses formats addrs as a RFC 5322 address list.
func JoinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

func parseTemplates() {
	templates = make(tmplCache)

	fps, err := fs.Glob(appfs.FS, path.Join(emailTemplateDir, "*"))
	if err != nil {
		tmplErr = err
		return
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := templates[name]
		if !ok {
			entry = make(tmplCacheEntry)
			templates[name] = entry
		}
		if ext == ".txt" {
			tmpl, err := texttmpl.New(fname).Option("missingkey=error").
				ParseFS(appfs.FS, path.Join(emailTemplateDir, "_base.txt"), fp)
			if err != nil {
				tmplErr = err
				return
			}
			entry[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.New(fname).Option("missingkey=error").
				ParseFS(appfs.FS, path.Join(emailTemplateDir, "_base.gohtml"), fp)
			if err != nil {
				tmplErr = err
				return
			}
			entry[ext] = tmpl
		}
	}
}
