package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core/schedule"
)

type scheduleApi struct {
	svc      *schedule.Service
	validate *validator.Validate
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *schedule.Service, validate *validator.Validate) {
	api := scheduleApi{
		svc:      svc,
		validate: validate,
	}

	sg := g.Group("/schedule", jwt)
	sg.GET("", api.query)
	sg.GET("/:date", api.retrieve)
	sg.PUT("/:date", api.replace)
	sg.PUT("/:date/hours/:hour", api.setNote)
	sg.DELETE("/:date/hours/:hour", api.clearNote)
}

// Handlers

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	date, err := bindDateParam(ctx, "date")
	if err != nil {
		return err
	}

	plan, err := api.svc.Get(ctx.Request().Context(), claims.Subject, date)
	if err != nil {
		return errors.Wrap(err, "getting day plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *scheduleApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	from, to, err := bindDateRangeQuery(ctx, 6 /* a week back */)
	if err != nil {
		return err
	}

	plans, err := api.svc.Query(ctx.Request().Context(), claims.Subject, from, to)
	if err != nil {
		return errors.Wrap(err, "querying day plans")
	}
	if plans == nil {
		plans = []schedule.DayPlan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}

func (api *scheduleApi) replace(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	date, err := bindDateParam(ctx, "date")
	if err != nil {
		return err
	}

	var data schedule.ReplaceNotes
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReplaceNotes")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	plan, err := api.svc.Replace(ctx.Request().Context(), claims.Subject, date, data.Notes)
	if err != nil {
		return errors.Wrap(err, "replacing day plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *scheduleApi) setNote(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	date, err := bindDateParam(ctx, "date")
	if err != nil {
		return err
	}
	hour, err := bindHourParam(ctx, "hour")
	if err != nil {
		return err
	}

	var data NoteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NoteRequest")
	}
	sn := schedule.SetNote{Hour: hour, Note: data.Note}
	if err := sn.Validate(api.validate); err != nil {
		return err
	}

	plan, err := api.svc.SetNote(ctx.Request().Context(), claims.Subject, date, sn.Hour, sn.Note)
	if err != nil {
		return errors.Wrap(err, "setting note")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *scheduleApi) clearNote(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	date, err := bindDateParam(ctx, "date")
	if err != nil {
		return err
	}
	hour, err := bindHourParam(ctx, "hour")
	if err != nil {
		return err
	}

	sn := schedule.SetNote{Hour: hour}
	if err := sn.Validate(api.validate); err != nil {
		return err
	}

	plan, err := api.svc.SetNote(ctx.Request().Context(), claims.Subject, date, sn.Hour, "")
	if err != nil {
		return errors.Wrap(err, "clearing note")
	}
	return ctx.JSON(http.StatusOK, plan)
}

type NoteRequest struct {
	Note string `json:"note"`
}
