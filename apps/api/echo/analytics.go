package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studyplan/core/analytics"
	"github.com/trezcool/studyplan/core/user"
)

func registerAnalyticsAPI(g *echo.Group, authed []echo.MiddlewareFunc, userSvc user.Service, svc analytics.Service) {
	g.GET("/analytics", func(ctx echo.Context) error {
		usr, err := getContextUser(ctx, userSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}

		report, err := svc.Get(ctx.Request().Context(), usr.ID)
		if err != nil {
			return errors.Wrap(err, "computing analytics")
		}
		return ctx.JSON(http.StatusOK, dataResponse(report))
	}, authed...)
}
