package echoapi

import (
	"context"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coffeeduty/core"
	"github.com/trezcool/coffeeduty/core/duty"
	"github.com/trezcool/coffeeduty/core/settings"
	emailsvc "github.com/trezcool/coffeeduty/services/email"
)

const testEmailTemplate = "test_email"

var errGmailNotConfigured = echo.NewHTTPError(http.StatusBadRequest, "gmail is not configured")

type (
	AutomationRequest struct {
		Enabled *bool `json:"enabled" validate:"required"`
	}

	AutomationResponse struct {
		Enabled bool `json:"enabled"`
	}

	ResetStatsResponse struct {
		Deleted int `json:"deleted"`
	}

	TestEmailRequest struct {
		To string `json:"to" validate:"required,email"`
	}

	GmailStatusResponse struct {
		Configured bool `json:"configured"`
		Connected  bool `json:"connected"`
	}

	URLResponse struct {
		URL string `json:"url"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

type adminApi struct {
	auth     *authenticator
	duty     *duty.Service
	settings *settings.Service
	mailer   core.EmailService
	gmail    *emailsvc.GmailService
	conf     *core.Config
	logger   core.Logger
	validate *validator.Validate
}

func registerAdminAPI(g *echo.Group, admin echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := adminApi{
		auth:     auth,
		duty:     deps.Duty,
		settings: deps.Settings,
		mailer:   deps.Mailer,
		gmail:    deps.Gmail,
		conf:     deps.Conf,
		logger:   deps.Logger,
		validate: deps.Validate,
	}

	// un-authed: google redirects the browser here
	g.GET("/gmail/oauth2callback", api.gmailCallback)

	ag := g.Group("/admin", admin)
	ag.GET("/automation", api.automation)
	ag.PUT("/automation", api.setAutomation)
	ag.POST("/reset-stats", api.resetStats)
	ag.POST("/selections/:id/resend", api.resend)
	ag.POST("/test-email", api.testEmail)
	ag.GET("/gmail", api.gmailStatus)
	ag.GET("/gmail/authorize", api.gmailAuthorize)
	ag.DELETE("/gmail", api.gmailDisconnect)
}

func (api *adminApi) automation(ctx echo.Context) error {
	enabled, err := api.settings.AutomationEnabled(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading automation flag")
	}
	return ctx.JSON(http.StatusOK, AutomationResponse{Enabled: enabled})
}

func (api *adminApi) setAutomation(ctx echo.Context) error {
	var data AutomationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AutomationRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if err := api.settings.SetAutomation(ctx.Request().Context(), *data.Enabled); err != nil {
		return errors.Wrap(err, "saving automation flag")
	}
	api.logger.Info("automation toggled", map[string]interface{}{"enabled": *data.Enabled})
	return ctx.JSON(http.StatusOK, AutomationResponse{Enabled: *data.Enabled})
}

func (api *adminApi) resetStats(ctx echo.Context) error {
	n, err := api.duty.ResetStats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "resetting stats")
	}
	return ctx.JSON(http.StatusOK, ResetStatsResponse{Deleted: n})
}

func (api *adminApi) resend(ctx echo.Context) error {
	res, err := api.duty.Resend(ctx.Request().Context(), ctx.Param(idParam))
	if err != nil {
		return errors.Wrap(err, "resending notification")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *adminApi) testEmail(ctx echo.Context) error {
	var data TestEmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TestEmailRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	if api.mailer == nil {
		return echo.NewHTTPError(http.StatusBadRequest, emailsvc.ErrNotConfigured.Error())
	}

	sendCtx, cancel := context.WithTimeout(ctx.Request().Context(), api.conf.Email.SendTimeout)
	defer cancel()

	msg := &core.EmailMessage{
		To:           []mail.Address{{Address: data.To}},
		Subject:      "Testni email",
		TemplateName: testEmailTemplate,
		TemplateData: map[string]interface{}{"Backend": api.mailer.Backend()},
	}
	if err := api.mailer.Send(sendCtx, msg); err != nil {
		api.logger.Warn("sending test email", err, map[string]interface{}{"backend": api.mailer.Backend()})
		return echo.NewHTTPError(http.StatusBadGateway, "email not sent: "+err.Error())
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Test email sent to " + data.To + "."})
}

func (api *adminApi) gmailStatus(ctx echo.Context) error {
	var res GmailStatusResponse
	if api.gmail != nil && api.gmail.Configured() {
		res.Configured = true
		connected, err := api.gmail.Connected(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "checking gmail connection")
		}
		res.Connected = connected
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *adminApi) gmailAuthorize(ctx echo.Context) error {
	if api.gmail == nil || !api.gmail.Configured() {
		return errGmailNotConfigured
	}
	state, err := api.auth.gmailState()
	if err != nil {
		return errors.Wrap(err, "generating oauth state")
	}
	url, err := api.gmail.AuthCodeURL(state)
	if err != nil {
		return errors.Wrap(err, "building consent url")
	}
	return ctx.JSON(http.StatusOK, URLResponse{URL: url})
}

func (api *adminApi) gmailDisconnect(ctx echo.Context) error {
	if api.gmail == nil {
		return errGmailNotConfigured
	}
	if err := api.gmail.Disconnect(ctx.Request().Context()); err != nil && !errors.Is(err, settings.ErrNotFound) {
		return errors.Wrap(err, "disconnecting gmail")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) gmailCallback(ctx echo.Context) error {
	if api.gmail == nil || !api.gmail.Configured() {
		return errGmailNotConfigured
	}
	if errParam := ctx.QueryParam("error"); errParam != "" {
		return echo.NewHTTPError(http.StatusBadRequest, "authorization denied: "+errParam)
	}
	if err := api.auth.checkGmailState(ctx.QueryParam("state")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid oauth state")
	}
	code := ctx.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing authorization code")
	}

	if err := api.gmail.Exchange(ctx.Request().Context(), code); err != nil {
		return errors.Wrap(err, "connecting gmail")
	}
	api.logger.Info("gmail connected")
	return ctx.String(http.StatusOK, "Gmail connected. You can close this window.")
}
