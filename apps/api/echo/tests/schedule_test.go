package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	echoapi "github.com/mawazo/ratiba/apps/api/echo"
	"github.com/mawazo/ratiba/core/reminder"
	"github.com/mawazo/ratiba/core/schedule"
	"github.com/mawazo/ratiba/core/user"
	testutil "github.com/mawazo/ratiba/tests"
)

func Test_scheduleApi(t *testing.T) {
	app := setup(t)

	member := testutil.CreateUser(t, usrRepo, "Hero", "member01", "hero@test.cd", "", []string{user.RoleMember}, true)
	token := getToken(t, member)

	decodePlan := func(t *testing.T, data []byte) schedule.DayPlan {
		t.Helper()
		var plan schedule.DayPlan
		if err := json.Unmarshal(data, &plan); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		return plan
	}
	memberAutoReminders := func(t *testing.T) []reminder.Reminder {
		t.Helper()
		auto := true
		rems, err := remSvc.Query(context.Background(), member.ID, &reminder.QueryFilter{Auto: &auto}, nil)
		if err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
		return rems
	}

	t.Run("auth required", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		req, rec := newRequest(http.MethodGet, "/v1/schedule")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("invalid date param", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date": "invalid date; expected 2006-01-02"}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/v1/schedule/lol", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unknown day reads as empty", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/schedule/2021-03-01", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		plan := decodePlan(t, rec.Body.Bytes())
		if len(plan.Notes) != 0 {
			t.Errorf("failed! notes = %v; want empty", plan.Notes)
		}
	})

	t.Run("out-of-range hour rejected", func(t *testing.T) {
		body := marchallObj(t, echoapi.NoteRequest{Note: "too early"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/schedule/2021-03-01/hours/3", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("set note creates auto reminder", func(t *testing.T) {
		body := marchallObj(t, echoapi.NoteRequest{Note: "Revise algebra"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/schedule/2021-03-01/hours/9", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		plan := decodePlan(t, rec.Body.Bytes())
		if plan.Notes[9] != "Revise algebra" {
			t.Errorf("failed! notes[9] = %q; want %q", plan.Notes[9], "Revise algebra")
		}

		rems := memberAutoReminders(t)
		if len(rems) != 1 {
			t.Fatalf("failed! len(auto reminders) = %d; want 1", len(rems))
		}
		if rems[0].Title != "Revise algebra" {
			t.Errorf("failed! reminder title = %q; want %q", rems[0].Title, "Revise algebra")
		}
	})

	t.Run("replace notes", func(t *testing.T) {
		body := marchallObj(t, schedule.ReplaceNotes{Notes: map[int]string{8: "Physics", 14: "History"}})
		req, rec := newAuthRequest(http.MethodPut, "/v1/schedule/2021-03-01", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		plan := decodePlan(t, rec.Body.Bytes())
		if len(plan.Notes) != 2 || plan.Notes[8] != "Physics" || plan.Notes[14] != "History" {
			t.Errorf("failed! notes = %v", plan.Notes)
		}

		// the auto reminder now tracks the earliest note
		rems := memberAutoReminders(t)
		if len(rems) != 1 {
			t.Fatalf("failed! len(auto reminders) = %d; want 1", len(rems))
		}
		if rems[0].Title != "Physics" {
			t.Errorf("failed! reminder title = %q; want %q", rems[0].Title, "Physics")
		}
	})

	t.Run("clear note", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/schedule/2021-03-01/hours/8", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		plan := decodePlan(t, rec.Body.Bytes())
		if _, ok := plan.Notes[8]; ok {
			t.Errorf("failed! notes = %v; want hour 8 cleared", plan.Notes)
		}
	})

	t.Run("query range", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/schedule?from=2021-03-01&to=2021-03-07", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var plans []schedule.DayPlan
		if err := json.Unmarshal(rec.Body.Bytes(), &plans); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(plans) != 1 {
			t.Fatalf("failed! len(plans) = %d; want 1", len(plans))
		}
		if plans[0].Notes[14] != "History" {
			t.Errorf("failed! notes = %v", plans[0].Notes)
		}
	})

	t.Run("plans are per owner", func(t *testing.T) {
		other := testutil.CreateUser(t, usrRepo, "Other", "other01", "other@test.cd", "", []string{user.RoleMember}, true)
		req, rec := newAuthRequest(http.MethodGet, "/v1/schedule/2021-03-01", getToken(t, other))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		plan := decodePlan(t, rec.Body.Bytes())
		if len(plan.Notes) != 0 {
			t.Errorf("failed! notes = %v; want empty", plan.Notes)
		}
	})
}
