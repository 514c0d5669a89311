package mailer

import (
	"html"
	"strings"

	"eventpass/internal/model"
)

// Render substitutes {placeholder} tokens. Unknown placeholders are left as is.
func Render(tpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

func TaskSubmissionURL(baseURL, registrationID string) string {
	return strings.TrimRight(baseURL, "/") + "/tasks/" + registrationID + "/submit"
}

func PassPageURL(baseURL, registrationID string) string {
	return strings.TrimRight(baseURL, "/") + "/mypass/" + registrationID
}

func link(href string) string {
	h := html.EscapeString(href)
	return `<a href="` + h + `">` + h + `</a>`
}

func sender(event *model.Event) (string, *Credentials) {
	if event.AppMail == "" || event.AppPass == "" {
		return "", nil
	}
	return event.AppMail, &Credentials{User: event.AppMail, Password: event.AppPass}
}

// RegistrationEmail is sent on sign-up for events that require a task.
func RegistrationEmail(reg *model.Registration, event *model.Event, baseURL string) Message {
	vars := map[string]string{
		"studentName":        html.EscapeString(reg.StudentName),
		"eventName":          html.EscapeString(event.Name),
		"taskSubmissionLink": link(TaskSubmissionURL(baseURL, reg.ID)),
		"taskPdfLink":        "",
	}
	if event.RequiresTask() {
		vars["taskPdfLink"] = link(*event.TaskPdfURL)
	}
	from, creds := sender(event)
	return Message{
		From:        from,
		To:          reg.StudentEmail,
		Subject:     Render(event.MailSubject, map[string]string{"eventName": event.Name, "studentName": reg.StudentName}),
		HTML:        Render(event.MailBody, vars),
		Credentials: creds,
	}
}

// PassEmail carries the QR image for an approved or waitlisted attendee.
func PassEmail(reg *model.Registration, event *model.Event, baseURL, qrImageURL string) Message {
	vars := map[string]string{
		"studentName": html.EscapeString(reg.StudentName),
		"eventName":   html.EscapeString(event.Name),
		"status":      string(reg.Status),
		"passLink":    link(PassPageURL(baseURL, reg.ID)),
	}
	body := Render(event.PassBody, vars) + passBlock(qrImageURL, PassPageURL(baseURL, reg.ID))
	from, creds := sender(event)
	return Message{
		From:        from,
		To:          reg.StudentEmail,
		Subject:     Render(event.PassSubject, map[string]string{"eventName": event.Name, "studentName": reg.StudentName}),
		HTML:        body,
		Credentials: creds,
	}
}

// ManualEmail renders a one-off email. An empty qrImageURL sends it without a pass.
func ManualEmail(p *model.ManualPass, subject, body, qrImageURL string) Message {
	vars := map[string]string{
		"studentName": html.EscapeString(p.StudentName),
		"eventName":   html.EscapeString(p.EventName),
		"eventVenue":  html.EscapeString(p.EventVenue),
	}
	if !p.EventDate.IsZero() {
		vars["eventDate"] = p.EventDate.Format("Mon, 02 Jan 2006 15:04")
	}
	htmlBody := Render(body, vars)
	if qrImageURL != "" {
		htmlBody += passBlock(qrImageURL, "")
	}
	return Message{
		To:      p.StudentEmail,
		Subject: Render(subject, map[string]string{"eventName": p.EventName, "studentName": p.StudentName}),
		HTML:    htmlBody,
	}
}

func passBlock(qrImageURL, pageURL string) string {
	var b strings.Builder
	b.WriteString(`<hr/><p>Show this code at the entrance:</p>`)
	b.WriteString(`<p><img src="` + html.EscapeString(qrImageURL) + `" alt="Event pass QR code"/></p>`)
	if pageURL != "" {
		b.WriteString(`<p>Your pass is also available at ` + link(pageURL) + `</p>`)
	}
	return b.String()
}
