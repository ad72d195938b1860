package emailsvc

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/coffeeduty/core"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// StatusError is a non-2xx answer of an email API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("email API status: %d - body: %s", e.Code, e.Body)
}

type sendgridService struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	site       core.SiteInfo
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(key string, from mail.Address, site core.SiteInfo) core.EmailService {
	return &sendgridService{
		key:        key,
		host:       sendgridHost,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + site.AppName + "] ",
		site:       site,
	}
}

func (svc *sendgridService) Backend() string { return core.EmailSendgrid }

func (svc *sendgridService) prepare(msg *core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail(to.Name, to.Address))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func (svc *sendgridService) Send(ctx context.Context, msg *core.EmailMessage) error {
	if svc.key == "" {
		return ErrNotConfigured
	}
	if err := prepare(msg, svc.site); err != nil {
		return err
	}

	req := sendgrid.GetRequest(svc.key, sendgridEndpoint, svc.host)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return errors.Wrap(err, "sending email")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return &StatusError{Code: res.StatusCode, Body: res.Body}
	}
	return nil
}
