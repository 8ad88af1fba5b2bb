package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"conference-abstracts-api/config"
	"conference-abstracts-api/models"

	"gorm.io/gorm"
)

// Message is a fire-and-forget notification for one recipient.
type Message struct {
	RecipientID int
	Subject     string
	Content     string
	AbstractID  int
}

// Notifier delivers messages. Errors are logged by the caller and never propagated.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// dispatchNotifications delivers msgs in the background on a context detached from the request.
func dispatchNotifications(ctx context.Context, notifier Notifier, msgs ...Message) {
	if notifier == nil || len(msgs) == 0 {
		return
	}
	bg := persistentContext(ctx)
	go func() {
		for _, msg := range msgs {
			if err := notifier.Notify(bg, msg); err != nil {
				log.Printf("notification to user %d (abstract %d) failed: %v", msg.RecipientID, msg.AbstractID, err)
			}
		}
	}()
}

// MailNotifier records an in-app notification and emails the recipient.
type MailNotifier struct {
	db   *gorm.DB
	send func(to []string, subject, html string) error
}

func NewMailNotifier(db *gorm.DB) *MailNotifier {
	if db == nil {
		db = config.DB
	}
	return &MailNotifier{db: db, send: config.SendMail}
}

func (n *MailNotifier) Notify(ctx context.Context, msg Message) error {
	if msg.RecipientID <= 0 {
		return errors.New("notification recipient is required")
	}

	var user models.User
	if err := n.db.WithContext(ctx).
		Where("user_id = ? AND delete_at IS NULL", msg.RecipientID).
		First(&user).Error; err != nil {
		return fmt.Errorf("failed to load recipient: %w", err)
	}

	var errs []error

	notification := models.Notification{
		UserID:   uint(user.UserID),
		Title:    msg.Subject,
		Message:  msg.Content,
		Type:     "info",
		CreateAt: time.Now(),
	}
	if msg.AbstractID > 0 {
		related := uint(msg.AbstractID)
		notification.RelatedAbstractID = &related
	}
	if err := n.db.WithContext(ctx).Create(&notification).Error; err != nil {
		errs = append(errs, fmt.Errorf("failed to save in-app notification: %w", err))
	}

	if strings.TrimSpace(user.Email) != "" && config.MailConfigured() {
		body := "<p>Dear " + html.EscapeString(user.FullName()) + ",</p>" +
			"<p>" + strings.ReplaceAll(html.EscapeString(msg.Content), "\n", "<br>") + "</p>"
		if err := n.send([]string{user.Email}, msg.Subject, body); err != nil {
			errs = append(errs, fmt.Errorf("failed to send email: %w", err))
		}
	}

	return errors.Join(errs...)
}
