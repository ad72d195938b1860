package emailsvc

import (
	"context"
	"io"
	"log"
	"net/mail"
	"sync"
	"time"

	"github.com/trezcool/coffeeduty/core"
)

// ConsoleService prints messages instead of sending them and remembers what it sent.
type ConsoleService struct {
	from       mail.Address
	subjPrefix string
	site       core.SiteInfo
	out        *log.Logger

	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*ConsoleService)(nil)

func NewConsoleService(from mail.Address, site core.SiteInfo, out io.Writer) *ConsoleService {
	return &ConsoleService{
		from:       from,
		subjPrefix: "[" + site.AppName + "] ",
		site:       site,
		out:        log.New(out, "EMAIL : ", log.LstdFlags),
	}
}

// NewConsoleServiceMock discards the output.
func NewConsoleServiceMock() *ConsoleService {
	return NewConsoleService(
		mail.Address{Name: "Coffee Duty", Address: "noreply@localhost"},
		core.SiteInfo{AppName: "Coffee Duty", FrontendBaseURL: "http://localhost:8000"},
		io.Discard,
	)
}

func (svc *ConsoleService) Backend() string { return core.EmailConsole }

func (svc *ConsoleService) Send(ctx context.Context, msg *core.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := prepare(msg, svc.site); err != nil {
		return err
	}
	raw, err := buildMIME(svc.from, svc.subjPrefix+msg.Subject, msg, time.Now())
	if err != nil {
		return err
	}
	svc.out.Println(raw)

	svc.mu.Lock()
	svc.sent = append(svc.sent, *msg)
	svc.mu.Unlock()
	return nil
}

// SentMessages returns a copy of everything sent so far.
func (svc *ConsoleService) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}
