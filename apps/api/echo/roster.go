package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coffeeduty/core/roster"
)

const (
	contextObjectKey = "object"
	idParam          = "id"
)

var errObjNotFoundInCtx = errors.New("object not found in echo.Context")

type PresenceRequest struct {
	IsPresent *bool `json:"is_present" validate:"required"`
}

type rosterApi struct {
	svc      *roster.Service
	validate *validator.Validate
}

func registerRosterAPI(g *echo.Group, admin echo.MiddlewareFunc, svc *roster.Service, validate *validator.Validate) {
	api := rosterApi{svc: svc, validate: validate}

	pg := g.Group("/people")
	pg.GET("", api.queryPeople)
	pg.POST("", api.createPerson, admin)

	pdg := pg.Group("/:id", api.personMiddleware)
	pdg.GET("", api.retrievePerson)
	pdg.POST("/presence", api.setPresence)
	pdg.PUT("", api.updatePerson, admin)
	pdg.DELETE("", api.destroyPerson, admin)

	cg := g.Group("/coffee-types")
	cg.GET("", api.queryCoffeeTypes)
	cg.POST("", api.createCoffeeType, admin)

	cdg := cg.Group("/:id", api.coffeeTypeMiddleware)
	cdg.GET("", api.retrieveCoffeeType)
	cdg.PUT("", api.updateCoffeeType, admin)
	cdg.DELETE("", api.destroyCoffeeType, admin)
}

// Middleware

func (api *rosterApi) personMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := api.svc.GetPerson(ctx.Request().Context(), ctx.Param(idParam))
		if err != nil {
			return errors.Wrap(err, "getting person")
		}
		ctx.Set(contextObjectKey, p)
		return next(ctx)
	}
}

func (api *rosterApi) coffeeTypeMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ct, err := api.svc.GetCoffeeType(ctx.Request().Context(), ctx.Param(idParam))
		if err != nil {
			return errors.Wrap(err, "getting coffee type")
		}
		ctx.Set(contextObjectKey, ct)
		return next(ctx)
	}
}

func contextPerson(ctx echo.Context) (roster.Person, error) {
	p, ok := ctx.Get(contextObjectKey).(roster.Person)
	if !ok {
		return roster.Person{}, errors.Wrap(errObjNotFoundInCtx, "retrieving person from context")
	}
	return p, nil
}

func contextCoffeeType(ctx echo.Context) (roster.CoffeeType, error) {
	ct, ok := ctx.Get(contextObjectKey).(roster.CoffeeType)
	if !ok {
		return roster.CoffeeType{}, errors.Wrap(errObjNotFoundInCtx, "retrieving coffee type from context")
	}
	return ct, nil
}

// People

func (api *rosterApi) queryPeople(ctx echo.Context) error {
	filter := new(roster.QueryFilter)
	err := echo.QueryParamsBinder(ctx).
		String("q", &filter.Search).
		Bool("include_inactive", &filter.IncludeInactive).
		BindError()
	if err != nil {
		return ctx.JSON(http.StatusOK, []roster.Person{})
	}
	if filter.IsPresent, err = optionalBool(ctx, "is_present"); err != nil {
		return err
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, roster.OrderingFields)

	people, err := api.svc.QueryPeople(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying people")
	}
	if people == nil {
		people = []roster.Person{}
	}
	return ctx.JSON(http.StatusOK, people)
}

func (api *rosterApi) createPerson(ctx echo.Context) error {
	var data roster.NewPerson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPerson")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	p, err := api.svc.CreatePerson(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating person")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *rosterApi) retrievePerson(ctx echo.Context) error {
	p, err := contextPerson(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *rosterApi) updatePerson(ctx echo.Context) error {
	p, err := contextPerson(ctx)
	if err != nil {
		return err
	}

	var data roster.UpdatePerson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePerson")
	}
	if err = data.Validate(ctx.Request().Context(), p, api.validate, api.svc); err != nil {
		return err
	}

	p, err = api.svc.UpdatePerson(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "updating person")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *rosterApi) setPresence(ctx echo.Context) error {
	p, err := contextPerson(ctx)
	if err != nil {
		return err
	}

	var data PresenceRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PresenceRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	p, err = api.svc.SetPresence(ctx.Request().Context(), p.ID, *data.IsPresent)
	if err != nil {
		return errors.Wrap(err, "setting presence")
	}
	return ctx.JSON(http.StatusOK, p)
}

// destroyPerson deactivates the person, or deletes it for good with `?hard=true`.
func (api *rosterApi) destroyPerson(ctx echo.Context) error {
	p, err := contextPerson(ctx)
	if err != nil {
		return err
	}
	hard, err := optionalBool(ctx, "hard")
	if err != nil {
		return err
	}

	if hard != nil && *hard {
		err = api.svc.DeletePerson(ctx.Request().Context(), p.ID)
	} else {
		err = api.svc.DeactivatePerson(ctx.Request().Context(), p.ID)
	}
	if err != nil {
		return errors.Wrap(err, "deleting person")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Coffee types

func (api *rosterApi) queryCoffeeTypes(ctx echo.Context) error {
	var includeInactive bool
	if err := echo.QueryParamsBinder(ctx).Bool("include_inactive", &includeInactive).BindError(); err != nil {
		return ctx.JSON(http.StatusOK, []roster.CoffeeType{})
	}

	cts, err := api.svc.QueryCoffeeTypes(ctx.Request().Context(), includeInactive)
	if err != nil {
		return errors.Wrap(err, "querying coffee types")
	}
	if cts == nil {
		cts = []roster.CoffeeType{}
	}
	return ctx.JSON(http.StatusOK, cts)
}

func (api *rosterApi) createCoffeeType(ctx echo.Context) error {
	var data roster.NewCoffeeType
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCoffeeType")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ct, err := api.svc.CreateCoffeeType(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating coffee type")
	}
	return ctx.JSON(http.StatusCreated, ct)
}

func (api *rosterApi) retrieveCoffeeType(ctx echo.Context) error {
	ct, err := contextCoffeeType(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ct)
}

func (api *rosterApi) updateCoffeeType(ctx echo.Context) error {
	ct, err := contextCoffeeType(ctx)
	if err != nil {
		return err
	}

	var data roster.UpdateCoffeeType
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCoffeeType")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	ct, err = api.svc.UpdateCoffeeType(ctx.Request().Context(), ct, data)
	if err != nil {
		return errors.Wrap(err, "updating coffee type")
	}
	return ctx.JSON(http.StatusOK, ct)
}

func (api *rosterApi) destroyCoffeeType(ctx echo.Context) error {
	ct, err := contextCoffeeType(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeactivateCoffeeType(ctx.Request().Context(), ct.ID); err != nil {
		return errors.Wrap(err, "deactivating coffee type")
	}
	return ctx.NoContent(http.StatusNoContent)
}
