package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coffeeduty/core/duty"
)

const dateLayout = "2006-01-02"

type ManualDrawRequest struct {
	Notify bool `json:"notify"`
}

type dutyApi struct {
	svc *duty.Service
}

func registerDutyAPI(g *echo.Group, scheduler echo.MiddlewareFunc, svc *duty.Service) {
	api := dutyApi{svc: svc}

	dg := g.Group("/draws")
	dg.POST("/manual", api.drawManual)
	dg.Match([]string{http.MethodGet, http.MethodPost}, "/auto", api.drawAuto, scheduler)

	g.GET("/standings", api.standings)
	g.GET("/history", api.history)
	g.GET("/dashboard", api.dashboard)
}

func drawStatusCode(res duty.DrawResult) int {
	if res.Drawn() {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (api *dutyApi) drawManual(ctx echo.Context) error {
	var data ManualDrawRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ManualDrawRequest")
	}

	res, err := api.svc.DrawManual(ctx.Request().Context(), data.Notify)
	if err != nil {
		return errors.Wrap(err, "drawing manually")
	}
	return ctx.JSON(drawStatusCode(res), res)
}

// drawAuto is hit by the external scheduler. Refusals are answered with 200.
func (api *dutyApi) drawAuto(ctx echo.Context) error {
	res, err := api.svc.DrawAuto(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "drawing automatically")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *dutyApi) standings(ctx echo.Context) error {
	presentOnly, err := optionalBool(ctx, "present_only")
	if err != nil {
		return err
	}

	stats, err := api.svc.Standings(ctx.Request().Context(), presentOnly != nil && *presentOnly)
	if err != nil {
		return errors.Wrap(err, "computing standings")
	}
	if stats == nil {
		stats = []duty.PersonStats{}
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *dutyApi) history(ctx echo.Context) error {
	var filter duty.SelectionFilter
	var source string
	err := echo.QueryParamsBinder(ctx).
		String("source", &source).
		String("person_id", &filter.PersonID).
		Time("since", &filter.Since, dateLayout).
		Int("limit", &filter.Limit).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	switch duty.Source(source) {
	case "", duty.SourceAuto, duty.SourceManual:
		filter.Source = duty.Source(source)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown source "+source)
	}

	entries, err := api.svc.History(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying history")
	}
	if entries == nil {
		entries = []duty.HistoryEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *dutyApi) dashboard(ctx echo.Context) error {
	dash, err := api.svc.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
