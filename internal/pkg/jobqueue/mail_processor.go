package jobqueue

import (
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/mercatosoft/catalogsync/internal/pkg/mail"
)

// processMailNotificationJob sends one notification email from the job payload
func (q *Queue) processMailNotificationJob(job *Job) error {
	payload, err := MailNotificationJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid mail notification payload: %w", err)
	}

	if payload.To == "" || payload.Subject == "" {
		return fmt.Errorf("mail notification payload missing recipient or subject")
	}

	if err := mail.SendMail(payload.To, payload.Subject, payload.HTMLBody, payload.TextBody); err != nil {
		return fmt.Errorf("failed to send notification mail to %s: %w", payload.To, err)
	}

	log.Infof("[JobQueue] Notification mail sent to %s (subject: %s)", payload.To, payload.Subject)
	return nil
}

// EnqueueMailNotification is a convenience wrapper for enqueuing a notification mail
func (q *Queue) EnqueueMailNotification(payload MailNotificationJobPayload) (*Job, error) {
	return q.EnqueueJob(JobTypeMailNotification, payload.ToMap())
}
