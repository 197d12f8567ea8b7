// Package ticketmail renders the customer-facing emails for ticket lifecycle
// events. Every builder is a pure function of its input: no network, no
// persistence, deterministic output. Each template produces a self-contained
// HTML document with inlined styling plus an equivalent plain-text body so a
// client without HTML rendering still gets every fact.
package ticketmail

import (
	"fmt"
	"html"
	"strings"
)

// Template is a rendered email, ready for the mailer.
type Template struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// TemplateData carries the fields every ticket email needs. TicketURL,
// SupportEmail and CompanyName are optional.
type TemplateData struct {
	CustomerName  string
	TicketID      string
	TicketSubject string
	TicketURL     string
	SupportEmail  string
	CompanyName   string
}

// NewResponseData is the input for the "support replied" email.
type NewResponseData struct {
	TemplateData
	ResponseMessage string
	AdminName       string
}

// StatusChangeData is the input for the "status updated" email.
// StatusMessage is optional.
type StatusChangeData struct {
	TemplateData
	OldStatus     string
	NewStatus     string
	StatusMessage string
}

// AssignmentData is the input for the "ticket assigned" email.
// EstimatedResponseTime is optional.
type AssignmentData struct {
	TemplateData
	AdminName             string
	AdminEmail            string
	EstimatedResponseTime string
}

// ClosureData is the input for the "ticket resolved" email.
// ResolutionSummary and RatingURL are optional.
type ClosureData struct {
	TemplateData
	ResolutionSummary string
	RatingURL         string
}

// RatingRequestData is the input for the standalone rating request email.
type RatingRequestData struct {
	TemplateData
	RatingURL string
}

// Brand colors, mirrored from the product's design tokens.
const (
	colorPrimary   = "#3b82f6"
	colorSuccess   = "#10b981"
	colorWarning   = "#f59e0b"
	colorText      = "#1f2937"
	colorTextLight = "#6b7280"
	colorBG        = "#f9fafb"
	colorBorder    = "#e5e7eb"
)

// StatusColor maps a ticket status to its accent color. Pure and stable for
// the same input.
func StatusColor(status string) string {
	switch status {
	case "closed":
		return colorSuccess
	case "in-progress":
		return colorPrimary
	default:
		return colorWarning
	}
}

// StatusEmoji maps a ticket status to its badge emoji.
func StatusEmoji(status string) string {
	switch status {
	case "closed":
		return "✅"
	case "in-progress":
		return "\U0001F504"
	default:
		return "\U0001F4CB"
	}
}

func emailStyles() string {
	return `
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
      line-height: 1.6;
      color: ` + colorText + `;
      background-color: ` + colorBG + `;
      margin: 0;
      padding: 0;
    }
    .container {
      max-width: 600px;
      margin: 0 auto;
      background-color: white;
      border-radius: 12px;
      overflow: hidden;
      box-shadow: 0 4px 6px rgba(0, 0, 0, 0.07);
    }
    .header {
      background: linear-gradient(135deg, ` + colorPrimary + ` 0%, #2563eb 100%);
      color: white;
      padding: 32px 24px;
      text-align: center;
    }
    .header h1 {
      margin: 0;
      font-size: 24px;
      font-weight: 600;
    }
    .content {
      padding: 32px 24px;
    }
    .message-box {
      background-color: ` + colorBG + `;
      border-left: 4px solid ` + colorPrimary + `;
      padding: 16px;
      margin: 20px 0;
      border-radius: 8px;
    }
    .button {
      display: inline-block;
      padding: 12px 32px;
      background-color: ` + colorPrimary + `;
      color: white;
      text-decoration: none;
      border-radius: 8px;
      font-weight: 600;
      margin: 20px 0;
    }
    .footer {
      background-color: ` + colorBG + `;
      padding: 24px;
      text-align: center;
      font-size: 14px;
      color: ` + colorTextLight + `;
      border-top: 1px solid ` + colorBorder + `;
    }
    .ticket-info {
      background-color: ` + colorBG + `;
      padding: 16px;
      border-radius: 8px;
      margin: 20px 0;
    }
    .ticket-info-row {
      display: flex;
      justify-content: space-between;
      padding: 8px 0;
      border-bottom: 1px solid ` + colorBorder + `;
    }
    .ticket-info-row:last-child {
      border-bottom: none;
    }
    .label {
      font-weight: 600;
      color: ` + colorTextLight + `;
    }
    .value {
      color: ` + colorText + `;
    }
    .status-badge {
      display: inline-block;
      padding: 4px 12px;
      border-radius: 12px;
      font-size: 13px;
      font-weight: 600;
    }
    .status-open {
      background-color: #fef3c7;
      color: #92400e;
    }
    .status-in-progress {
      background-color: #dbeafe;
      color: #1e40af;
    }
    .status-closed {
      background-color: #d1fae5;
      color: #065f46;
    }
  </style>
`
}

func emailHeader(title string) string {
	return `
  <div class="header">
    <h1>` + title + `</h1>
  </div>
`
}

func (d TemplateData) companyOrDefault() string {
	if d.CompanyName != "" {
		return d.CompanyName
	}
	return "our support team"
}

func (d TemplateData) supportEmailOrDefault() string {
	if d.SupportEmail != "" {
		return d.SupportEmail
	}
	return "support@example.com"
}

func emailFooter(d TemplateData) string {
	return `
  <div class="footer">
    <p style="margin: 0 0 12px 0;">
      This is an automated message from ` + html.EscapeString(d.companyOrDefault()) + `.
    </p>
    <p style="margin: 0 0 12px 0;">
      Need help? Contact us at ` + html.EscapeString(d.supportEmailOrDefault()) + `
    </p>
  </div>
`
}

func textFooter(d TemplateData) string {
	return "---\n" +
		"This is an automated message from " + d.companyOrDefault() + ".\n" +
		"Need help? Contact us at " + d.supportEmailOrDefault() + "\n"
}

func htmlDocument(header, content string, d TemplateData) string {
	return `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">` +
		emailStyles() + `
</head>
<body>
  <div class="container">` +
		header + `
    <div class="content">` +
		content + `
    </div>` +
		emailFooter(d) + `
  </div>
</body>
</html>
`
}

func infoRow(label, value string) string {
	return `
      <div class="ticket-info-row">
        <span class="label">` + label + `</span>
        <span class="value">` + value + `</span>
      </div>`
}

func badge(status string) string {
	return `<span class="status-badge status-` + html.EscapeString(status) + `">` + html.EscapeString(status) + `</span>`
}

func ctaButton(url, label string) string {
	return `
      <div style="text-align: center;">
        <a href="` + html.EscapeString(url) + `" class="button">` + label + `</a>
      </div>`
}

// NewResponse renders the email sent when a support agent replies to a
// customer's ticket.
func NewResponse(d NewResponseData) Template {
	subject := "New response to your ticket: " + d.TicketSubject

	var b strings.Builder
	b.WriteString(`
      <p>Hi ` + html.EscapeString(d.CustomerName) + `,</p>
      <p><strong>` + html.EscapeString(d.AdminName) + `</strong> has replied to your support ticket.</p>
      <div class="ticket-info">` +
		infoRow("Ticket ID:", "#"+html.EscapeString(d.TicketID)) +
		infoRow("Subject:", html.EscapeString(d.TicketSubject)) +
		infoRow("From:", html.EscapeString(d.AdminName)) + `
      </div>
      <div class="message-box">
        <p style="margin: 0; white-space: pre-wrap;">` + html.EscapeString(d.ResponseMessage) + `</p>
      </div>`)
	if d.TicketURL != "" {
		b.WriteString(ctaButton(d.TicketURL, "View Ticket &amp; Reply"))
	}
	b.WriteString(`
      <p style="color: ` + colorTextLight + `; font-size: 14px; margin-top: 24px;">
        <strong>Quick Tip:</strong> Reply directly to this email to add your response to the ticket.
      </p>`)

	var t strings.Builder
	t.WriteString("New Response from Support\n\n")
	t.WriteString("Hi " + d.CustomerName + ",\n\n")
	t.WriteString(d.AdminName + " has replied to your support ticket.\n\n")
	t.WriteString("Ticket ID: #" + d.TicketID + "\n")
	t.WriteString("Subject: " + d.TicketSubject + "\n")
	t.WriteString("From: " + d.AdminName + "\n\n")
	t.WriteString("Message:\n---\n" + d.ResponseMessage + "\n---\n\n")
	if d.TicketURL != "" {
		t.WriteString("View and reply to your ticket: " + d.TicketURL + "\n\n")
	}
	t.WriteString("Quick Tip: Reply directly to this email to add your response to the ticket.\n\n")
	t.WriteString(textFooter(d.TemplateData))

	return Template{
		Subject:  subject,
		HTMLBody: htmlDocument(emailHeader("\U0001F4AC New Response from Support"), b.String(), d.TemplateData),
		TextBody: t.String(),
	}
}

// StatusChange renders the email sent when a ticket's status is updated.
func StatusChange(d StatusChangeData) Template {
	subject := "Ticket status updated: " + d.TicketSubject

	var b strings.Builder
	b.WriteString(`
      <p>Hi ` + html.EscapeString(d.CustomerName) + `,</p>
      <p>The status of your support ticket has been updated.</p>
      <div class="ticket-info">` +
		infoRow("Ticket ID:", "#"+html.EscapeString(d.TicketID)) +
		infoRow("Subject:", html.EscapeString(d.TicketSubject)) +
		infoRow("Previous Status:", badge(d.OldStatus)) +
		infoRow("New Status:", badge(d.NewStatus)) + `
      </div>`)
	if d.StatusMessage != "" {
		b.WriteString(`
      <div class="message-box">
        <p style="margin: 0;">` + html.EscapeString(d.StatusMessage) + `</p>
      </div>`)
	}
	if d.TicketURL != "" {
		b.WriteString(ctaButton(d.TicketURL, "View Ticket Details"))
	}

	var t strings.Builder
	t.WriteString("Ticket Status Updated\n\n")
	t.WriteString("Hi " + d.CustomerName + ",\n\n")
	t.WriteString("The status of your support ticket has been updated.\n\n")
	t.WriteString("Ticket ID: #" + d.TicketID + "\n")
	t.WriteString("Subject: " + d.TicketSubject + "\n")
	t.WriteString("Previous Status: " + d.OldStatus + "\n")
	t.WriteString("New Status: " + d.NewStatus + "\n\n")
	if d.StatusMessage != "" {
		t.WriteString(d.StatusMessage + "\n\n")
	}
	if d.TicketURL != "" {
		t.WriteString("View ticket details: " + d.TicketURL + "\n\n")
	}
	t.WriteString(textFooter(d.TemplateData))

	return Template{
		Subject:  subject,
		HTMLBody: htmlDocument(emailHeader(StatusEmoji(d.NewStatus)+" Ticket Status Updated"), b.String(), d.TemplateData),
		TextBody: t.String(),
	}
}

// TicketAssigned renders the email sent when a ticket is assigned to an
// agent.
func TicketAssigned(d AssignmentData) Template {
	subject := "Your ticket has been assigned: " + d.TicketSubject

	var b strings.Builder
	b.WriteString(`
      <p>Hi ` + html.EscapeString(d.CustomerName) + `,</p>
      <p>Great news! Your support ticket has been assigned to <strong>` + html.EscapeString(d.AdminName) + `</strong>.</p>
      <div class="ticket-info">` +
		infoRow("Ticket ID:", "#"+html.EscapeString(d.TicketID)) +
		infoRow("Subject:", html.EscapeString(d.TicketSubject)) +
		infoRow("Assigned To:", html.EscapeString(d.AdminName)))
	if d.EstimatedResponseTime != "" {
		b.WriteString(infoRow("Expected Response:", html.EscapeString(d.EstimatedResponseTime)))
	}
	b.WriteString(`
      </div>
      <p>They'll review your request and get back to you as soon as possible.</p>`)
	if d.TicketURL != "" {
		b.WriteString(ctaButton(d.TicketURL, "View Ticket Status"))
	}

	var t strings.Builder
	t.WriteString("Ticket Assigned\n\n")
	t.WriteString("Hi " + d.CustomerName + ",\n\n")
	t.WriteString("Great news! Your support ticket has been assigned to " + d.AdminName + ".\n\n")
	t.WriteString("Ticket ID: #" + d.TicketID + "\n")
	t.WriteString("Subject: " + d.TicketSubject + "\n")
	t.WriteString("Assigned To: " + d.AdminName + "\n")
	if d.EstimatedResponseTime != "" {
		t.WriteString("Expected Response: " + d.EstimatedResponseTime + "\n")
	}
	t.WriteString("\nThey'll review your request and get back to you as soon as possible.\n\n")
	if d.TicketURL != "" {
		t.WriteString("View ticket status: " + d.TicketURL + "\n\n")
	}
	t.WriteString(textFooter(d.TemplateData))

	return Template{
		Subject:  subject,
		HTMLBody: htmlDocument(emailHeader("\U0001F464 Ticket Assigned"), b.String(), d.TemplateData),
		TextBody: t.String(),
	}
}

// TicketClosed renders the email sent when a ticket is marked resolved.
func TicketClosed(d ClosureData) Template {
	subject := "Ticket resolved: " + d.TicketSubject

	var b strings.Builder
	b.WriteString(`
      <p>Hi ` + html.EscapeString(d.CustomerName) + `,</p>
      <p>Your support ticket has been marked as resolved.</p>
      <div class="ticket-info">` +
		infoRow("Ticket ID:", "#"+html.EscapeString(d.TicketID)) +
		infoRow("Subject:", html.EscapeString(d.TicketSubject)) +
		infoRow("Status:", `<span class="status-badge status-closed">Resolved</span>`) + `
      </div>`)
	if d.ResolutionSummary != "" {
		b.WriteString(`
      <div class="message-box">
        <p style="margin: 0; font-weight: 600;">Resolution Summary:</p>
        <p style="margin: 8px 0 0 0;">` + html.EscapeString(d.ResolutionSummary) + `</p>
      </div>`)
	}
	b.WriteString(`
      <p>We hope we've addressed your issue. If you have any other questions or concerns, please don't hesitate to create a new ticket.</p>`)
	if d.RatingURL != "" {
		b.WriteString(`
      <div style="background-color: ` + colorBG + `; padding: 20px; border-radius: 8px; text-align: center; margin: 24px 0;">
        <p style="margin: 0 0 16px 0; font-weight: 600;">How did we do?</p>
        <p style="margin: 0 0 16px 0; color: ` + colorTextLight + `;">
          Your feedback helps us improve our support service.
        </p>
        <a href="` + html.EscapeString(d.RatingURL) + `" class="button">Rate This Support Experience</a>
      </div>`)
	}

	var t strings.Builder
	t.WriteString("Ticket Resolved\n\n")
	t.WriteString("Hi " + d.CustomerName + ",\n\n")
	t.WriteString("Your support ticket has been marked as resolved.\n\n")
	t.WriteString("Ticket ID: #" + d.TicketID + "\n")
	t.WriteString("Subject: " + d.TicketSubject + "\n")
	t.WriteString("Status: Resolved\n\n")
	if d.ResolutionSummary != "" {
		t.WriteString("Resolution Summary:\n" + d.ResolutionSummary + "\n\n")
	}
	t.WriteString("We hope we've addressed your issue. If you have any other questions or concerns, please don't hesitate to create a new ticket.\n\n")
	if d.RatingURL != "" {
		t.WriteString("How did we do?\nYour feedback helps us improve our support service.\nRate this support experience: " + d.RatingURL + "\n\n")
	}
	t.WriteString(textFooter(d.TemplateData))

	return Template{
		Subject:  subject,
		HTMLBody: htmlDocument(emailHeader("✅ Ticket Resolved"), b.String(), d.TemplateData),
		TextBody: t.String(),
	}
}

// RatingRequest renders the standalone satisfaction-survey email, sent
// separately from closure.
func RatingRequest(d RatingRequestData) Template {
	subject := "We'd love your feedback on ticket: " + d.TicketSubject

	var b strings.Builder
	b.WriteString(`
      <p>Hi ` + html.EscapeString(d.CustomerName) + `,</p>
      <p>We recently resolved your support ticket and we'd love to hear about your experience.</p>
      <div class="ticket-info">` +
		infoRow("Ticket ID:", "#"+html.EscapeString(d.TicketID)) +
		infoRow("Subject:", html.EscapeString(d.TicketSubject)) + `
      </div>
      <div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); padding: 32px; border-radius: 12px; text-align: center; margin: 24px 0; color: white;">
        <p style="margin: 0 0 16px 0; font-size: 20px; font-weight: 600;">
          How satisfied were you with our support?
        </p>
        <p style="margin: 0 0 24px 0; opacity: 0.9;">
          Your feedback takes less than a minute and helps us improve.
        </p>
        <a href="` + html.EscapeString(d.RatingURL) + `" class="button" style="background-color: white; color: #667eea;">
          Take 1-Minute Survey
        </a>
      </div>
      <p style="text-align: center; color: ` + colorTextLight + `; font-size: 14px;">
        Thank you for choosing ` + html.EscapeString(d.companyOrService()) + `!
      </p>`)

	var t strings.Builder
	t.WriteString("Rate Your Support Experience\n\n")
	t.WriteString("Hi " + d.CustomerName + ",\n\n")
	t.WriteString("We recently resolved your support ticket and we'd love to hear about your experience.\n\n")
	t.WriteString("Ticket ID: #" + d.TicketID + "\n")
	t.WriteString("Subject: " + d.TicketSubject + "\n\n")
	t.WriteString("How satisfied were you with our support?\n\n")
	t.WriteString("Your feedback takes less than a minute and helps us improve.\n\n")
	t.WriteString("Take 1-Minute Survey: " + d.RatingURL + "\n\n")
	t.WriteString(fmt.Sprintf("Thank you for choosing %s!\n\n", d.companyOrService()))
	t.WriteString(textFooter(d.TemplateData))

	return Template{
		Subject:  subject,
		HTMLBody: htmlDocument(emailHeader("⭐ Rate Your Support Experience"), b.String(), d.TemplateData),
		TextBody: t.String(),
	}
}

// companyOrService is the "Thank you for choosing X" variant, which falls
// back to "our service" instead of "our support team".
func (d TemplateData) companyOrService() string {
	if d.CompanyName != "" {
		return d.CompanyName
	}
	return "our service"
}
