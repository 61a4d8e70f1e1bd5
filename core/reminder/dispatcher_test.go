package reminder_test

import (
	"context"
	"testing"
	"time"

	"github.com/mawazo/ratiba/core/reminder"
	emailsvc "github.com/mawazo/ratiba/services/email"
	inmemdb "github.com/mawazo/ratiba/storage/database/inmem"
	testutil "github.com/mawazo/ratiba/tests"
)

func TestDispatcher_DispatchOnce(t *testing.T) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	svc := reminder.NewService(inmemdb.NewReminderRepository(db))
	usrRepo := inmemdb.NewUserRepository(db)

	conf := testutil.NewConfig()
	testutil.ParseEmailTemplates(conf)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	dispatcher := reminder.NewDispatcher(svc, mailSvc, testutil.NopLogger{}, conf)

	ctx := context.Background()
	now := time.Now().UTC()

	active := testutil.CreateUser(t, usrRepo, "Amani", "amani", "amani@test.cd", "", nil, true)
	inactive := testutil.CreateUser(t, usrRepo, "Zuri", "zuri", "zuri@test.cd", "", nil, false)

	testutil.CreateReminder(t, svc, active.ID, "Revise algebra", now.Add(-2*time.Hour), "chapter 4")
	due2 := testutil.CreateReminder(t, svc, active.ID, "Physics notes", now.Add(-time.Hour), "")
	testutil.CreateReminder(t, svc, active.ID, "Not yet due", now.Add(time.Hour), "")
	testutil.CreateReminder(t, svc, inactive.ID, "Never mailed", now.Add(-time.Hour), "")

	if _, err = svc.SetDone(ctx, active.ID, due2.ID, true); err != nil {
		t.Fatalf("SetDone() failed: %v", err)
	}

	emailsvc.SentMessages = emailsvc.SentMessages[:0]
	if err := dispatcher.DispatchOnce(ctx); err != nil {
		t.Fatalf("DispatchOnce() failed: %v", err)
	}

	// one digest for the active owner; done, future and inactive-owner
	// reminders are excluded
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("sent = %d; want 1", len(emailsvc.SentMessages))
	}
	msg := emailsvc.SentMessages[0]
	if len(msg.To) != 1 || msg.To[0].Address != active.Email {
		t.Errorf("digest recipient = %v; want %s", msg.To, active.Email)
	}
	if msg.TemplateName != "reminders-due" {
		t.Errorf("template = %q", msg.TemplateName)
	}

	// a second pass sends nothing: notified reminders are skipped
	emailsvc.SentMessages = emailsvc.SentMessages[:0]
	if err := dispatcher.DispatchOnce(ctx); err != nil {
		t.Fatalf("DispatchOnce() failed: %v", err)
	}
	if len(emailsvc.SentMessages) != 0 {
		t.Errorf("sent = %d; want 0", len(emailsvc.SentMessages))
	}
}
