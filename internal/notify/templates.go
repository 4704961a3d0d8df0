package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

const donationRequestText = `Dear {{.DoneeName}},

Great news! {{.DonorName}} wants to donate food to {{.OrganizationName}}.

Donor details
  Name:    {{.DonorName}}
  Contact: {{.DonorContact}}

Donation
  Food:     {{.FoodType}}
  Quantity: {{.Quantity}}
  Serves:   {{.EstimatedPeople}} people
{{- if .ScheduledTime}}
  Pickup:   {{fmtTime .ScheduledTime}}
{{- end}}
{{- if .Notes}}
  Notes:    {{.Notes}}
{{- end}}

Once you have received the donation, confirm it here:
{{.ConfirmURL}}

Warm regards,
The FeedLink Team
`

const donationRequestHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>New Donation Alert</h2>
<p>Dear <strong>{{.DoneeName}}</strong>,</p>
<p><strong>{{.DonorName}}</strong> wants to donate food to {{.OrganizationName}}.</p>
<ul>
<li><strong>Contact:</strong> {{.DonorContact}}</li>
<li><strong>Food:</strong> {{.FoodType}}</li>
<li><strong>Quantity:</strong> {{.Quantity}}</li>
<li><strong>Serves:</strong> {{.EstimatedPeople}} people</li>
{{- if .ScheduledTime}}
<li><strong>Pickup:</strong> {{fmtTime .ScheduledTime}}</li>
{{- end}}
{{- if .Notes}}
<li><strong>Notes:</strong> {{.Notes}}</li>
{{- end}}
</ul>
<p><a href="{{.ConfirmURL}}">Confirm receipt of this donation</a></p>
<p>Warm regards,<br>The FeedLink Team</p>
</div>`

const verifiedText = `Dear {{.DoneeName}},

{{.OrganizationName}} has been verified on FeedLink. Donors near you can now
find your organization and send donations.

Warm regards,
The FeedLink Team
`

const verifiedHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>Your organization is verified</h2>
<p>Dear <strong>{{.DoneeName}}</strong>,</p>
<p>{{.OrganizationName}} has been verified on FeedLink. Donors near you can now find your organization.</p>
<p>Warm regards,<br>The FeedLink Team</p>
</div>`

const rejectedText = `Dear {{.DoneeName}},

We could not approve {{.OrganizationName}} on FeedLink.

Reason: {{.Reason}}

Reply to this mail if you believe this is a mistake.

The FeedLink Team
`

const rejectedHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>Registration update</h2>
<p>Dear <strong>{{.DoneeName}}</strong>,</p>
<p>We could not approve {{.OrganizationName}} on FeedLink.</p>
<p><strong>Reason:</strong> {{.Reason}}</p>
<p>The FeedLink Team</p>
</div>`

func fmtTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
}

type mailTemplate struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

func newMailTemplate(name, subject, text, html string) mailTemplate {
	funcs := map[string]any{"fmtTime": fmtTime}
	return mailTemplate{
		subject: subject,
		text:    texttemplate.Must(texttemplate.New(name).Funcs(funcs).Parse(text)),
		html:    htmltemplate.Must(htmltemplate.New(name).Funcs(funcs).Parse(html)),
	}
}

func (t mailTemplate) render(to string, data any) (Message, error) {
	var text, html bytes.Buffer
	if err := t.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", t.text.Name(), err)
	}
	if err := t.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", t.html.Name(), err)
	}
	return Message{To: to, Subject: t.subject, TextBody: text.String(), HTMLBody: html.String()}, nil
}

var (
	donationRequestTemplate = newMailTemplate("donation_request", "New Donation Alert from FeedLink", donationRequestText, donationRequestHTML)
	verifiedTemplate        = newMailTemplate("donee_verified", "Your organization is verified on FeedLink", verifiedText, verifiedHTML)
	rejectedTemplate        = newMailTemplate("donee_rejected", "Update on your FeedLink registration", rejectedText, rejectedHTML)
)

// RenderDonationRequest renders the donation request mail.
func RenderDonationRequest(msg DonationRequest) (Message, error) {
	return donationRequestTemplate.render(msg.DoneeEmail, msg)
}

// RenderDoneeVerified renders the verification mail.
func RenderDoneeVerified(msg DoneeVerification) (Message, error) {
	return verifiedTemplate.render(msg.DoneeEmail, msg)
}

// RenderDoneeRejected renders the rejection or suspension mail.
func RenderDoneeRejected(msg DoneeRejection) (Message, error) {
	return rejectedTemplate.render(msg.DoneeEmail, msg)
}
