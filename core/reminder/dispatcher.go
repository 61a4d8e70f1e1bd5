package reminder

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/mawazo/ratiba/core"
)

// Dispatcher periodically scans for due reminders and mails them to their
// owners, one digest per owner per scan.
type Dispatcher struct {
	svc      *Service
	mailSvc  core.EmailService
	logger   core.Logger
	interval time.Duration
	nowFunc  func() time.Time // mockable
}

func NewDispatcher(svc *Service, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Dispatcher {
	return &Dispatcher{
		svc:      svc,
		mailSvc:  mailSvc,
		logger:   logger,
		interval: conf.ReminderDispatchInterval,
		nowFunc:  time.Now,
	}
}

// Run blocks dispatching due reminders until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DispatchOnce(ctx); err != nil {
				d.logger.Error(fmt.Sprintf("dispatching reminders: %v", err), err)
			}
		}
	}
}

// DispatchOnce scans once and sends a digest per owner with due reminders.
func (d *Dispatcher) DispatchOnce(ctx context.Context) error {
	now := d.nowFunc().UTC()
	due, err := d.svc.repo.QueryDueReminders(ctx, now)
	if err != nil {
		return errors.Wrap(err, "querying due reminders")
	}
	if len(due) == 0 {
		return nil
	}

	type digest struct {
		name      string
		email     string
		reminders []Reminder
		ids       []string
	}
	digests := make(map[string]*digest)
	order := make([]string, 0, len(due))

	for _, dr := range due {
		dg, ok := digests[dr.OwnerID]
		if !ok {
			dg = &digest{name: dr.OwnerName, email: dr.OwnerEmail}
			digests[dr.OwnerID] = dg
			order = append(order, dr.OwnerID)
		}
		dg.reminders = append(dg.reminders, dr.Reminder)
		dg.ids = append(dg.ids, dr.ID)
	}

	notified := make([]string, 0, len(due))
	for _, ownerID := range order {
		dg := digests[ownerID]
		if dg.email == "" {
			continue
		}
		d.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: dg.name, Address: dg.email}},
			Subject:      "Study reminders due",
			TemplateName: "reminders-due",
			TemplateData: struct {
				Name      string
				Reminders []Reminder
			}{dg.name, dg.reminders},
		})
		notified = append(notified, dg.ids...)
	}

	if len(notified) == 0 {
		return nil
	}
	return errors.Wrap(d.svc.repo.MarkNotified(ctx, notified, now), "marking notified")
}
