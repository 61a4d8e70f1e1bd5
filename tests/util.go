package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/mawazo/ratiba/core"
	"github.com/mawazo/ratiba/core/reminder"
	"github.com/mawazo/ratiba/core/user"
)

// NopLogger discards everything; handy where a core.Logger is required.
type NopLogger struct{}

func (NopLogger) Enable(bool)                  {}
func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

var _ core.Logger = (*NopLogger)(nil)

// ParseEmailTemplates loads the embedded email templates for tests.
func ParseEmailTemplates(conf *core.Config) {
	core.ParseEmailTemplates(NopLogger{}, conf)
}

// NewConfig returns a self-contained test configuration; no env files or
// external services are touched.
func NewConfig() *core.Config {
	return &core.Config{
		TestMode: true,
		Env:      "test",
		AppName:  "Ratiba",

		SecretKey:        []byte("secret-test-key-do-not-use"),
		FrontendBaseURL:  "https://ratiba.test",
		DefaultFromEmail: mail.Address{Name: "Ratiba", Address: "noreply@ratiba.test"},

		JWTExpirationDelta:        10 * time.Minute,
		JWTRefreshExpirationDelta: 4 * time.Hour,
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		ReminderDispatchInterval:  time.Minute,
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateReminder(
	t *testing.T,
	svc *reminder.Service,
	ownerID, title string,
	dueAt time.Time,
	note string,
) reminder.Reminder {
	t.Helper()

	rem, err := svc.Create(context.Background(), ownerID, reminder.NewReminder{
		Title: title,
		DueAt: dueAt,
		Note:  note,
	})
	if err != nil {
		t.Fatalf("CreateReminder() failed: %v", err)
	}
	return rem
}
