package reminder_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core/reminder"
	inmemdb "github.com/mawazo/ratiba/storage/database/inmem"
	testutil "github.com/mawazo/ratiba/tests"
)

func setup(t *testing.T) (*reminder.Service, *inmemdb.DB) {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	return reminder.NewService(inmemdb.NewReminderRepository(db)), db
}

func TestService_Update_autoFlip(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	owner := "owner-1"
	day := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	// seed an auto reminder via reconciliation
	if err := svc.SyncAuto(ctx, owner, day, 9, "Revise algebra", true); err != nil {
		t.Fatalf("SyncAuto() failed: %v", err)
	}
	auto := true
	rems, err := svc.Query(ctx, owner, &reminder.QueryFilter{Auto: &auto}, nil)
	if err != nil || len(rems) != 1 {
		t.Fatalf("Query() = %v, %v; want 1 auto reminder", rems, err)
	}
	rem := rems[0]

	// marking done does not flip auto
	rem, err = svc.Update(ctx, owner, rem.ID, reminder.UpdateReminder{Done: boolPtr(true)})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if !rem.Auto {
		t.Error("Done-only update must not flip Auto")
	}
	if !rem.Done {
		t.Error("Done was not set")
	}

	// editing content converts it to a user reminder
	rem, err = svc.Update(ctx, owner, rem.ID, reminder.UpdateReminder{Title: "My own title"})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if rem.Auto {
		t.Error("content edit must flip Auto to false")
	}

	// the day now has no auto reminder; a schedule change creates a fresh one
	if err = svc.SyncAuto(ctx, owner, day, 10, "Chemistry", true); err != nil {
		t.Fatalf("SyncAuto() failed: %v", err)
	}
	rems, err = svc.Query(ctx, owner, nil, nil)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(rems) != 2 {
		t.Errorf("reminders = %d; want user + new auto", len(rems))
	}
}

func TestService_SyncAuto(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	owner := "owner-1"
	day := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	// no note, nothing stored: no-op
	if err := svc.SyncAuto(ctx, owner, day, 0, "", false); err != nil {
		t.Fatalf("SyncAuto() failed: %v", err)
	}

	// create
	if err := svc.SyncAuto(ctx, owner, day, 8, "Physics", true); err != nil {
		t.Fatalf("SyncAuto() failed: %v", err)
	}
	rems, _ := svc.Query(ctx, owner, nil, nil)
	if len(rems) != 1 {
		t.Fatalf("reminders = %d; want 1", len(rems))
	}
	created := rems[0]
	if !created.Auto || created.Title != "Physics" || !created.DueAt.Equal(day.Add(8*time.Hour)) {
		t.Errorf("unexpected auto reminder: %+v", created)
	}

	// unchanged note: no-op, same reminder
	if err := svc.SyncAuto(ctx, owner, day, 8, "Physics", true); err != nil {
		t.Fatalf("SyncAuto() failed: %v", err)
	}
	rems, _ = svc.Query(ctx, owner, nil, nil)
	if len(rems) != 1 || rems[0].ID != created.ID {
		t.Errorf("unchanged sync must keep the same reminder; got %+v", rems)
	}

	// user reminders on the same day are never touched
	usrRem := testutil.CreateReminder(t, svc, owner, "Buy books", day.Add(12*time.Hour), "")

	// delete the auto reminder only
	if err := svc.SyncAuto(ctx, owner, day, 0, "", false); err != nil {
		t.Fatalf("SyncAuto() failed: %v", err)
	}
	rems, _ = svc.Query(ctx, owner, nil, nil)
	if len(rems) != 1 || rems[0].ID != usrRem.ID {
		t.Errorf("user reminder must survive auto deletion; got %+v", rems)
	}
}

func TestService_Get_notFound(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	rem := testutil.CreateReminder(t, svc, "owner-1", "Mine", time.Now().Add(time.Hour), "")

	// another owner cannot see it
	if _, err := svc.Get(ctx, "owner-2", rem.ID); errors.Cause(err) != reminder.ErrNotFound {
		t.Errorf("Get() error = %v; want ErrNotFound", err)
	}
	if _, err := svc.Get(ctx, "owner-1", rem.ID); err != nil {
		t.Errorf("Get() failed: %v", err)
	}
}

func TestService_SyncAuto_concurrent(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	owner := "owner-1"
	day := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	// all goroutines reconcile the same day at once; exactly one auto
	// reminder must come out
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if err := svc.SyncAuto(ctx, owner, day, 9, "Revise algebra", true); err != nil {
				t.Errorf("SyncAuto() failed: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	auto := true
	rems, err := svc.Query(ctx, owner, &reminder.QueryFilter{Auto: &auto}, nil)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(rems) != 1 {
		t.Errorf("got %d auto reminders for the day; want 1", len(rems))
	}
}

func boolPtr(b bool) *bool { return &b }
