package emailsvc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/trezcool/coffeeduty/core"
	"github.com/trezcool/coffeeduty/core/settings"
)

// GmailService sends through the Gmail API on behalf of the account that authorized the
// app. The OAuth2 token lives in the settings store and refreshed tokens are saved back.
type GmailService struct {
	oauth      *oauth2.Config
	store      settings.Store
	from       mail.Address
	subjPrefix string
	site       core.SiteInfo
	opts       []option.ClientOption
}

var _ core.EmailService = (*GmailService)(nil)

func NewGmailService(conf core.EmailConfig, from mail.Address, site core.SiteInfo, store settings.Store, opts ...option.ClientOption) *GmailService {
	return &GmailService{
		oauth: &oauth2.Config{
			ClientID:     conf.GmailClientID,
			ClientSecret: conf.GmailClientSecret,
			RedirectURL:  conf.GmailRedirectURL,
			Scopes:       []string{gmail.GmailSendScope},
			Endpoint:     google.Endpoint,
		},
		store:      store,
		from:       from,
		subjPrefix: "[" + site.AppName + "] ",
		site:       site,
		opts:       opts,
	}
}

func (svc *GmailService) Backend() string { return core.EmailGmail }

// Configured reports whether client credentials are set.
func (svc *GmailService) Configured() bool {
	return svc.oauth.ClientID != "" && svc.oauth.ClientSecret != ""
}

// AuthCodeURL is the consent page URL. Offline access yields a refresh token.
func (svc *GmailService) AuthCodeURL(state string) (string, error) {
	if !svc.Configured() {
		return "", ErrNotConfigured
	}
	return svc.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange trades the authorization code for a token and stores it.
func (svc *GmailService) Exchange(ctx context.Context, code string) error {
	if !svc.Configured() {
		return ErrNotConfigured
	}
	tok, err := svc.oauth.Exchange(ctx, code)
	if err != nil {
		return errors.Wrap(err, "exchanging authorization code")
	}
	return saveToken(ctx, svc.store, tok)
}

// Connected reports whether a token is stored.
func (svc *GmailService) Connected(ctx context.Context) (bool, error) {
	_, err := loadToken(ctx, svc.store)
	if errors.Is(err, settings.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Disconnect forgets the stored token.
func (svc *GmailService) Disconnect(ctx context.Context) error {
	return errors.Wrap(svc.store.Delete(ctx, settings.KeyGmailToken), "deleting gmail token")
}

func (svc *GmailService) Send(ctx context.Context, msg *core.EmailMessage) error {
	tok, err := loadToken(ctx, svc.store)
	if errors.Is(err, settings.ErrNotFound) || !svc.Configured() {
		return ErrNotConfigured
	} else if err != nil {
		return err
	}
	if err = prepare(msg, svc.site); err != nil {
		return err
	}

	ts := &persistingTokenSource{
		ctx:   context.WithoutCancel(ctx),
		base:  svc.oauth.TokenSource(ctx, tok),
		store: svc.store,
		last:  tok,
	}
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, svc.opts...)
	api, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return errors.Wrap(err, "creating gmail client")
	}

	raw, err := buildMIME(svc.from, svc.subjPrefix+msg.Subject, msg, time.Now())
	if err != nil {
		return err
	}
	_, err = api.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return &StatusError{Code: gerr.Code, Body: gerr.Message}
		}
		return errors.Wrap(err, "sending email through gmail")
	}
	return nil
}

func loadToken(ctx context.Context, store settings.Store) (*oauth2.Token, error) {
	val, err := store.Get(ctx, settings.KeyGmailToken)
	if err != nil {
		return nil, err
	}
	tok := new(oauth2.Token)
	if err = json.Unmarshal([]byte(val), tok); err != nil {
		return nil, errors.Wrap(err, "decoding gmail token")
	}
	return tok, nil
}

func saveToken(ctx context.Context, store settings.Store, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return errors.Wrap(err, "encoding gmail token")
	}
	return errors.Wrap(store.Set(ctx, settings.KeyGmailToken, string(data)), "saving gmail token")
}

// persistingTokenSource saves every new token handed out by base.
type persistingTokenSource struct {
	ctx   context.Context
	base  oauth2.TokenSource
	store settings.Store

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || tok.AccessToken != s.last.AccessToken {
		// the refresh token is only returned on the first exchange
		if tok.RefreshToken == "" && s.last != nil {
			tok.RefreshToken = s.last.RefreshToken
		}
		if err = saveToken(s.ctx, s.store, tok); err != nil {
			return nil, err
		}
		s.last = tok
	}
	return tok, nil
}
