package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studyplan/core/plan"
	"github.com/trezcool/studyplan/core/user"
)

type planApi struct {
	userSvc  user.Service
	svc      plan.Service
	validate *validator.Validate
}

func registerPlanAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	userSvc user.Service,
	svc plan.Service,
	validate *validator.Validate,
) {
	api := planApi{
		userSvc:  userSvc,
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/plans", authed...)
	pg.POST("", api.generate)
	pg.GET("", api.query)
	pg.GET("/:id", api.retrieve)
	pg.PATCH("/:id/steps", api.updateStep)
	pg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *planApi) generate(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data plan.GenerateRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Generate(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "generating study plan")
	}
	return ctx.JSON(http.StatusCreated, dataResponse(p))
}

func (api *planApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	plans, err := api.svc.Query(ctx.Request().Context(), usr.ID, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying study plans")
	}

	summaries := make([]plan.Summary, 0, len(plans))
	for _, p := range plans {
		summaries = append(summaries, p.Summary())
	}
	return ctx.JSON(http.StatusOK, dataResponse(summaries))
}

func (api *planApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), usr.ID)
	if err != nil {
		return errors.Wrap(err, "finding study plan")
	}
	return ctx.JSON(http.StatusOK, dataResponse(p))
}

func (api *planApi) updateStep(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data plan.StepUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StepUpdate")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.UpdateStep(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating study plan step")
	}
	return ctx.JSON(http.StatusOK, dataResponse(p.Progress()))
}

func (api *planApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "deleting study plan")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Study plan deleted successfully"})
}
