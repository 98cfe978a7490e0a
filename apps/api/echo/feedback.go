package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/feedback"
	"github.com/trezcool/studyplan/core/user"
)

type feedbackApi struct {
	userSvc  user.Service
	svc      feedback.Service
	validate *validator.Validate
}

func registerFeedbackAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	userSvc user.Service,
	svc feedback.Service,
	validate *validator.Validate,
) {
	api := feedbackApi{
		userSvc:  userSvc,
		svc:      svc,
		validate: validate,
	}

	fg := g.Group("/feedback", authed...)
	fg.POST("", api.submit)
	fg.GET("", api.retrieve)
}

// Handlers

func (api *feedbackApi) submit(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data feedback.SubmitFeedback
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitFeedback")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	fb, err := api.svc.Submit(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "submitting feedback")
	}
	return ctx.JSON(http.StatusOK, dataResponse(fb, "Feedback submitted successfully"))
}

// retrieve returns the user's feedback on ?studyPlanId, or null data when there is none.
func (api *feedbackApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	planID := core.CleanString(ctx.QueryParam("studyPlanId"))
	if planID == "" {
		return core.NewValidationError(
			errors.New("study plan ID is required"),
			core.FieldError{Field: "studyPlanId", Error: "studyPlanId is required"},
		)
	}

	fb, err := api.svc.Get(ctx.Request().Context(), usr.ID, planID)
	if err != nil {
		if errors.Cause(err) == feedback.ErrNotFound {
			return ctx.JSON(http.StatusOK, dataResponse(nil))
		}
		return errors.Wrap(err, "finding feedback")
	}
	return ctx.JSON(http.StatusOK, dataResponse(fb))
}
