package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/mercatosoft/catalogsync/internal/pkg/jobqueue"
	"github.com/mercatosoft/catalogsync/internal/pkg/ticketmail"
)

// MailEnqueuer queues outbound notification mails
type MailEnqueuer interface {
	EnqueueMailNotification(payload jobqueue.MailNotificationJobPayload) (*jobqueue.Job, error)
}

var mailQueue MailEnqueuer

// InitializeTicketController wires the mail queue used by the notification
// route
func InitializeTicketController(q MailEnqueuer) {
	mailQueue = q
}

const (
	TicketEventNewResponse   = "new_response"
	TicketEventStatusChange  = "status_change"
	TicketEventAssigned      = "assigned"
	TicketEventClosed        = "closed"
	TicketEventRatingRequest = "rating_request"
)

// TicketNotifyRequest is the body of POST /api/internal/tickets/notify
type TicketNotifyRequest struct {
	Event string           `json:"event" validate:"required,oneof=new_response status_change assigned closed rating_request"`
	To    string           `json:"to" validate:"required,email"`
	Data  TicketNotifyData `json:"data" validate:"required"`
}

// TicketNotifyData carries the union of all template fields. Which ones are
// required depends on the event.
type TicketNotifyData struct {
	CustomerName  string `json:"customer_name" validate:"required"`
	TicketID      string `json:"ticket_id" validate:"required"`
	TicketSubject string `json:"ticket_subject" validate:"required"`
	TicketURL     string `json:"ticket_url"`
	SupportEmail  string `json:"support_email"`
	CompanyName   string `json:"company_name"`

	ResponseMessage       string `json:"response_message"`
	AdminName             string `json:"admin_name"`
	AdminEmail            string `json:"admin_email"`
	OldStatus             string `json:"old_status"`
	NewStatus             string `json:"new_status"`
	StatusMessage         string `json:"status_message"`
	EstimatedResponseTime string `json:"estimated_response_time"`
	ResolutionSummary     string `json:"resolution_summary"`
	RatingURL             string `json:"rating_url"`
}

func (d TicketNotifyData) templateData() ticketmail.TemplateData {
	return ticketmail.TemplateData{
		CustomerName:  d.CustomerName,
		TicketID:      d.TicketID,
		TicketSubject: d.TicketSubject,
		TicketURL:     d.TicketURL,
		SupportEmail:  d.SupportEmail,
		CompanyName:   d.CompanyName,
	}
}

// HandleTicketNotify renders the matching ticket email and queues it for
// delivery
func HandleTicketNotify(c *fiber.Ctx) error {
	var req TicketNotifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validator.New().Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	tpl, err := buildTicketTemplate(req.Event, req.Data)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	job, err := mailQueue.EnqueueMailNotification(jobqueue.MailNotificationJobPayload{
		To:       req.To,
		Subject:  tpl.Subject,
		HTMLBody: tpl.HTMLBody,
		TextBody: tpl.TextBody,
	})
	if err != nil {
		log.Errorf("[TicketController] Failed to enqueue notification mail: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to queue notification"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Notification queued",
		"job_id":  job.ID,
	})
}

func buildTicketTemplate(event string, d TicketNotifyData) (ticketmail.Template, error) {
	base := d.templateData()

	switch event {
	case TicketEventNewResponse:
		if d.ResponseMessage == "" || d.AdminName == "" {
			return ticketmail.Template{}, fiber.NewError(fiber.StatusBadRequest, "response_message and admin_name are required for new_response")
		}
		return ticketmail.NewResponse(ticketmail.NewResponseData{
			TemplateData:    base,
			ResponseMessage: d.ResponseMessage,
			AdminName:       d.AdminName,
		}), nil
	case TicketEventStatusChange:
		if d.OldStatus == "" || d.NewStatus == "" {
			return ticketmail.Template{}, fiber.NewError(fiber.StatusBadRequest, "old_status and new_status are required for status_change")
		}
		return ticketmail.StatusChange(ticketmail.StatusChangeData{
			TemplateData:  base,
			OldStatus:     d.OldStatus,
			NewStatus:     d.NewStatus,
			StatusMessage: d.StatusMessage,
		}), nil
	case TicketEventAssigned:
		if d.AdminName == "" {
			return ticketmail.Template{}, fiber.NewError(fiber.StatusBadRequest, "admin_name is required for assigned")
		}
		return ticketmail.TicketAssigned(ticketmail.AssignmentData{
			TemplateData:          base,
			AdminName:             d.AdminName,
			AdminEmail:            d.AdminEmail,
			EstimatedResponseTime: d.EstimatedResponseTime,
		}), nil
	case TicketEventClosed:
		return ticketmail.TicketClosed(ticketmail.ClosureData{
			TemplateData:      base,
			ResolutionSummary: d.ResolutionSummary,
			RatingURL:         d.RatingURL,
		}), nil
	case TicketEventRatingRequest:
		if d.RatingURL == "" {
			return ticketmail.Template{}, fiber.NewError(fiber.StatusBadRequest, "rating_url is required for rating_request")
		}
		return ticketmail.RatingRequest(ticketmail.RatingRequestData{
			TemplateData: base,
			RatingURL:    d.RatingURL,
		}), nil
	default:
		return ticketmail.Template{}, fiber.NewError(fiber.StatusBadRequest, "unknown notification event: "+event)
	}
}
