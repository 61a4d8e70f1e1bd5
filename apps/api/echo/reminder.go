package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core/reminder"
)

type reminderApi struct {
	svc      *reminder.Service
	validate *validator.Validate
}

func registerReminderAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *reminder.Service, validate *validator.Validate) {
	api := reminderApi{
		svc:      svc,
		validate: validate,
	}

	rg := g.Group("/reminders", jwt)
	rg.GET("", api.query)
	rg.POST("", api.create)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.update)
	rg.DELETE("/:id", api.destroy)
	rg.POST("/:id/done", api.markDone)
	rg.POST("/:id/undone", api.markUndone)
}

// Handlers

func (api *reminderApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data reminder.NewReminder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReminder")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rem, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating reminder")
	}
	return ctx.JSON(http.StatusCreated, rem)
}

func (api *reminderApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	filter := new(reminder.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []reminder.Reminder{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, "title", "due_at", "created_at")

	rems, err := api.svc.Query(ctx.Request().Context(), claims.Subject, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying reminders")
	}
	if rems == nil {
		rems = []reminder.Reminder{}
	}
	return ctx.JSON(http.StatusOK, rems)
}

func (api *reminderApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	rem, err := api.svc.Get(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == reminder.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting reminder")
	}
	return ctx.JSON(http.StatusOK, rem)
}

func (api *reminderApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data reminder.UpdateReminder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateReminder")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rem, err := api.svc.Update(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == reminder.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating reminder")
	}
	return ctx.JSON(http.StatusOK, rem)
}

func (api *reminderApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting reminder")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *reminderApi) markDone(ctx echo.Context) error {
	return api.setDone(ctx, true)
}

func (api *reminderApi) markUndone(ctx echo.Context) error {
	return api.setDone(ctx, false)
}

func (api *reminderApi) setDone(ctx echo.Context, done bool) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	rem, err := api.svc.SetDone(ctx.Request().Context(), claims.Subject, ctx.Param("id"), done)
	if err != nil {
		if errors.Cause(err) == reminder.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "setting reminder done flag")
	}
	return ctx.JSON(http.StatusOK, rem)
}
