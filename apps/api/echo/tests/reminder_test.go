package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/mawazo/ratiba/core/reminder"
	"github.com/mawazo/ratiba/core/user"
	testutil "github.com/mawazo/ratiba/tests"
)

func Test_reminderApi(t *testing.T) {
	app := setup(t)

	member := testutil.CreateUser(t, usrRepo, "Hero", "member01", "hero@test.cd", "", []string{user.RoleMember}, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other01", "other@test.cd", "", []string{user.RoleMember}, true)
	token := getToken(t, member)

	decodeReminder := func(t *testing.T, data []byte) reminder.Reminder {
		t.Helper()
		var rem reminder.Reminder
		if err := json.Unmarshal(data, &rem); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		return rem
	}

	dueAt := time.Date(2021, 3, 5, 9, 0, 0, 0, time.UTC)
	var created reminder.Reminder

	t.Run("auth required", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		req, rec := newRequest(http.MethodGet, "/v1/reminders")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("required fields", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": "this field is required", "due_at": "this field is required"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/reminders", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("create", func(t *testing.T) {
		body := marchallObj(t, reminder.NewReminder{Title: "Buy books", DueAt: dueAt, Note: "the algebra one"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/reminders", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		created = decodeReminder(t, rec.Body.Bytes())
		if created.ID == "" {
			t.Error("failed! empty reminder ID")
		}
		if created.Auto {
			t.Error("failed! user reminder flagged auto")
		}
		if created.Done {
			t.Error("failed! new reminder flagged done")
		}
	})

	t.Run("retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reminders/"+created.ID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if rem := decodeReminder(t, rec.Body.Bytes()); rem.Title != "Buy books" {
			t.Errorf("failed! title = %q; want %q", rem.Title, "Buy books")
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		req, rec := newAuthRequest(http.MethodGet, "/v1/reminders/lol", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("reminders are per owner", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		req, rec := newAuthRequest(http.MethodGet, "/v1/reminders/"+created.ID, getToken(t, other))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("update", func(t *testing.T) {
		body := marchallObj(t, reminder.UpdateReminder{Title: "Borrow books"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/reminders/"+created.ID, token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		rem := decodeReminder(t, rec.Body.Bytes())
		if rem.Title != "Borrow books" {
			t.Errorf("failed! title = %q; want %q", rem.Title, "Borrow books")
		}
		if !rem.DueAt.Equal(dueAt) {
			t.Errorf("failed! dueAt = %v; want unchanged %v", rem.DueAt, dueAt)
		}
	})

	t.Run("done and undone", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/reminders/"+created.ID+"/done", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if rem := decodeReminder(t, rec.Body.Bytes()); !rem.Done {
			t.Error("failed! reminder not done")
		}

		req, rec = newAuthRequest(http.MethodPost, "/v1/reminders/"+created.ID+"/undone", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if rem := decodeReminder(t, rec.Body.Bytes()); rem.Done {
			t.Error("failed! reminder still done")
		}
	})

	t.Run("query", func(t *testing.T) {
		testutil.CreateReminder(t, remSvc, member.ID, "Mock exam", dueAt.AddDate(0, 0, 2), "")
		testutil.CreateReminder(t, remSvc, other.ID, "Not mine", dueAt, "")

		req, rec := newAuthRequest(http.MethodGet, "/v1/reminders", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var rems []reminder.Reminder
		if err := json.Unmarshal(rec.Body.Bytes(), &rems); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(rems) != 2 {
			t.Fatalf("failed! len(reminders) = %d; want 2", len(rems))
		}
		// default ordering is by due date
		if rems[0].Title != "Borrow books" || rems[1].Title != "Mock exam" {
			t.Errorf("failed! titles = %q, %q", rems[0].Title, rems[1].Title)
		}
	})

	t.Run("query with search", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/reminders?search="+url.QueryEscape("mock"), token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var rems []reminder.Reminder
		if err := json.Unmarshal(rec.Body.Bytes(), &rems); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(rems) != 1 || rems[0].Title != "Mock exam" {
			t.Errorf("failed! reminders = %+v; want Mock exam only", rems)
		}
	})

	t.Run("destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/reminders/"+created.ID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/reminders/"+created.ID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
		}
	})
}
