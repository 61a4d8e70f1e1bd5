package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core/study"
)

type studyApi struct {
	svc      *study.Service
	validate *validator.Validate
}

func registerStudyAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *study.Service, validate *validator.Validate) {
	api := studyApi{
		svc:      svc,
		validate: validate,
	}

	sg := g.Group("/study/sessions", jwt)
	sg.POST("", api.start)
	sg.GET("", api.history)
	sg.GET("/active", api.active)
	sg.GET("/:id", api.retrieve)
	sg.POST("/:id/pause", api.pause)
	sg.POST("/:id/resume", api.resume)
	sg.POST("/:id/cancel", api.cancel)
	sg.POST("/:id/complete", api.complete)
}

// Handlers

func (api *studyApi) start(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data study.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Start(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studyApi) active(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	s, err := api.svc.Active(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == study.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting active session")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studyApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	s, err := api.svc.Get(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == study.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting session")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studyApi) history(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "started_at", "ended_at")

	sessions, err := api.svc.History(ctx.Request().Context(), claims.Subject, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []study.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *studyApi) pause(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data study.Unlock
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Unlock")
	}

	s, err := api.svc.Pause(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data.Passcode)
	if err != nil {
		if errors.Cause(err) == study.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "pausing session")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studyApi) resume(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	s, err := api.svc.Resume(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == study.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "resuming session")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studyApi) cancel(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data study.Unlock
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Unlock")
	}

	s, err := api.svc.Cancel(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data.Passcode)
	if err != nil {
		if errors.Cause(err) == study.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "cancelling session")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studyApi) complete(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	s, err := api.svc.Complete(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == study.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "completing session")
	}
	return ctx.JSON(http.StatusOK, s)
}
