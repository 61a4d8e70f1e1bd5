package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mawazo/ratiba/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses the "ordering" query param ("field1,-field2"). Fields not in
// allowed are dropped; ordering fields end up in SQL so they must be
// whitelisted.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !isAllowedField(field, allowed) {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func isAllowedField(field string, allowed []string) bool {
	for _, a := range allowed {
		if field == a {
			return true
		}
	}
	return false
}

// bindDateParam parses a YYYY-MM-DD path param.
func bindDateParam(ctx echo.Context, name string) (time.Time, error) {
	date, err := core.ParseDate(ctx.Param(name))
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{
			Field: name,
			Error: "invalid date; expected " + core.DateFormat,
		})
	}
	return date, nil
}

// bindHourParam parses an integer hour path param.
func bindHourParam(ctx echo.Context, name string) (int, error) {
	hour, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, core.NewValidationError(nil, core.FieldError{
			Field: name,
			Error: "invalid hour",
		})
	}
	return hour, nil
}

// bindDateRangeQuery parses optional "from" and "to" query params, defaulting
// to an open-ended range around now.
func bindDateRangeQuery(ctx echo.Context, defaultSpanDays int) (from, to time.Time, err error) {
	parse := func(name string) (time.Time, error) {
		if val := ctx.QueryParam(name); val != "" {
			date, err := core.ParseDate(val)
			if err != nil {
				return time.Time{}, core.NewValidationError(nil, core.FieldError{
					Field: name,
					Error: "invalid date; expected " + core.DateFormat,
				})
			}
			return date, nil
		}
		return time.Time{}, nil
	}

	if from, err = parse("from"); err != nil {
		return
	}
	if to, err = parse("to"); err != nil {
		return
	}

	now := core.DateOf(time.Now())
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultSpanDays)
	}
	return
}
