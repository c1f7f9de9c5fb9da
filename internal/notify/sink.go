package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/eyecare-clinic-api/internal/messaging"
	"github.com/wolfman30/eyecare-clinic-api/internal/records"
)

// Alert is what the relay hands to each sink for one new booking.
type Alert struct {
	ID          string              `json:"id"`
	Appointment records.Appointment `json:"appointment"`
	Title       string              `json:"title"`
	Body        string              `json:"body"`
	Tag         string              `json:"tag"`
	AdminText   string              `json:"admin_text"`
	AdminLink   string              `json:"whatsapp_link,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Sink delivers an alert over one channel. Implementations must be safe for
// concurrent use.
type Sink interface {
	Kind() string
	Notify(ctx context.Context, alert Alert) error
}

// Broadcaster pushes events to connected admin clients. *Hub implements it.
type Broadcaster interface {
	Broadcast(evt Event) error
}

// Event types sent over the admin stream.
const (
	EventAdminWhatsApp  = "admin_whatsapp"
	EventPlatformAlert  = "platform_alert"
	EventPlaySound      = "play_sound"
	EventContactMessage = "contact_message"
)

// MessagingSink hands the admin the pre-filled WhatsApp link for the booking.
type MessagingSink struct {
	hub         Broadcaster
	composer    *messaging.Composer
	adminNumber string
}

func NewMessagingSink(hub Broadcaster, composer *messaging.Composer, adminNumber string) *MessagingSink {
	return &MessagingSink{hub: hub, composer: composer, adminNumber: adminNumber}
}

func (s *MessagingSink) Kind() string { return "messaging" }

func (s *MessagingSink) Notify(_ context.Context, alert Alert) error {
	link := alert.AdminLink
	if link == "" {
		text, err := s.composer.AdminAlert(alert.Appointment, alert.CreatedAt)
		if err != nil {
			return fmt.Errorf("notify: compose admin alert: %w", err)
		}
		if link, err = messaging.WhatsAppLink(s.adminNumber, text); err != nil {
			return fmt.Errorf("notify: admin link: %w", err)
		}
	}
	return s.hub.Broadcast(Event{Type: EventAdminWhatsApp, Data: map[string]string{
		"appointment_id": alert.Appointment.ID,
		"whatsapp_link":  link,
	}})
}

// PlatformAlertSink asks admin browsers to raise a system notification.
type PlatformAlertSink struct {
	hub Broadcaster
}

func NewPlatformAlertSink(hub Broadcaster) *PlatformAlertSink {
	return &PlatformAlertSink{hub: hub}
}

func (s *PlatformAlertSink) Kind() string { return "platform_alert" }

func (s *PlatformAlertSink) Notify(_ context.Context, alert Alert) error {
	return s.hub.Broadcast(Event{Type: EventPlatformAlert, Data: map[string]string{
		"title": alert.Title,
		"body":  alert.Body,
		"tag":   alert.Tag,
	}})
}

// SoundSink asks admin browsers to play the notification chime.
type SoundSink struct {
	hub Broadcaster
}

func NewSoundSink(hub Broadcaster) *SoundSink {
	return &SoundSink{hub: hub}
}

func (s *SoundSink) Kind() string { return "sound" }

func (s *SoundSink) Notify(_ context.Context, alert Alert) error {
	return s.hub.Broadcast(Event{Type: EventPlaySound, Data: map[string]string{"tag": alert.Tag}})
}

// EmailSink mails the admin alert text to a fixed recipient list.
type EmailSink struct {
	sender     EmailSender
	recipients []string
}

// NewEmailSink returns nil when there is no sender or no recipient.
func NewEmailSink(sender EmailSender, recipients []string) *EmailSink {
	var to []string
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			to = append(to, r)
		}
	}
	if sender == nil || len(to) == 0 {
		return nil
	}
	return &EmailSink{sender: sender, recipients: to}
}

func (s *EmailSink) Kind() string { return "email" }

func (s *EmailSink) Notify(ctx context.Context, alert Alert) error {
	body := alert.AdminText
	if body == "" {
		body = alert.Body
	}
	var errs []error
	for _, to := range s.recipients {
		err := s.sender.Send(ctx, EmailMessage{
			To:       to,
			Subject:  alert.Title,
			Body:     body,
			Category: CategoryAppointmentAlert,
			RecordID: alert.Appointment.ID,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}
