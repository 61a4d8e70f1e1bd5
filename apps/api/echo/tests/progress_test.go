package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/mawazo/ratiba/core/progress"
	"github.com/mawazo/ratiba/core/user"
	testutil "github.com/mawazo/ratiba/tests"
)

func Test_progressApi(t *testing.T) {
	app := setup(t)

	member := testutil.CreateUser(t, usrRepo, "Hero", "member01", "hero@test.cd", "", []string{user.RoleMember}, true)
	token := getToken(t, member)

	decodeWeek := func(t *testing.T, data []byte) progress.Week {
		t.Helper()
		var week progress.Week
		if err := json.Unmarshal(data, &week); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		return week
	}

	monday := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("auth required", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		req, rec := newRequest(http.MethodGet, "/v1/progress")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unknown week reads as all false", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/progress/2021-03-03", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		week := decodeWeek(t, rec.Body.Bytes())
		if !week.StartDate.Equal(monday) {
			t.Errorf("failed! startDate = %v; want %v", week.StartDate, monday)
		}
		if n := week.MetCount(); n != 0 {
			t.Errorf("failed! metCount = %d; want 0", n)
		}
	})

	t.Run("toggle", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/progress/2021-03-03/toggle", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		week := decodeWeek(t, rec.Body.Bytes())
		if !week.Days[2] {
			t.Error("failed! wednesday not set")
		}
	})

	t.Run("set explicitly", func(t *testing.T) {
		body := marchallObj(t, progress.SetDay{Met: true})
		req, rec := newAuthRequest(http.MethodPut, "/v1/progress/2021-03-07", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		week := decodeWeek(t, rec.Body.Bytes())
		// the Sunday belongs to the same Monday-keyed week
		if !week.StartDate.Equal(monday) {
			t.Errorf("failed! startDate = %v; want %v", week.StartDate, monday)
		}
		if !week.Days[2] || !week.Days[6] {
			t.Errorf("failed! days = %v; want wednesday and sunday set", week.Days)
		}
	})

	t.Run("summarize", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/progress?from=2021-03-01&to=2021-03-14", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var summaries []progress.Summary
		if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(summaries) != 1 {
			t.Fatalf("failed! len(summaries) = %d; want 1", len(summaries))
		}
		if summaries[0].DaysMet != 2 {
			t.Errorf("failed! daysMet = %d; want 2", summaries[0].DaysMet)
		}
	})

	t.Run("invalid date param", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date": "invalid date; expected 2006-01-02"}),
		}
		req, rec := newAuthRequest(http.MethodPut, "/v1/progress/lol", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}
