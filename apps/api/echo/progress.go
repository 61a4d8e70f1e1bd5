package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core/progress"
)

type progressApi struct {
	svc      *progress.Service
	validate *validator.Validate
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *progress.Service, validate *validator.Validate) {
	api := progressApi{
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/progress", jwt)
	pg.GET("", api.summarize)
	pg.GET("/:date", api.retrieve)
	pg.PUT("/:date", api.set)
	pg.POST("/:date/toggle", api.toggle)
}

// Handlers

func (api *progressApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	date, err := bindDateParam(ctx, "date")
	if err != nil {
		return err
	}

	week, err := api.svc.Get(ctx.Request().Context(), claims.Subject, date)
	if err != nil {
		return errors.Wrap(err, "getting week")
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *progressApi) toggle(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	date, err := bindDateParam(ctx, "date")
	if err != nil {
		return err
	}

	week, err := api.svc.Toggle(ctx.Request().Context(), claims.Subject, date)
	if err != nil {
		return errors.Wrap(err, "toggling day")
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *progressApi) set(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	date, err := bindDateParam(ctx, "date")
	if err != nil {
		return err
	}

	var data progress.SetDay
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetDay")
	}

	week, err := api.svc.Set(ctx.Request().Context(), claims.Subject, date, data.Met)
	if err != nil {
		return errors.Wrap(err, "setting day")
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *progressApi) summarize(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	from, to, err := bindDateRangeQuery(ctx, 28 /* four weeks back */)
	if err != nil {
		return err
	}

	summaries, err := api.svc.Summarize(ctx.Request().Context(), claims.Subject, from, to)
	if err != nil {
		return errors.Wrap(err, "summarizing weeks")
	}
	if summaries == nil {
		summaries = []progress.Summary{}
	}
	return ctx.JSON(http.StatusOK, summaries)
}
