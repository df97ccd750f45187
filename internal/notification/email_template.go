package notification

import (
	"bytes"
	"html/template"
	"time"
)

// The notification email layout. Kept deliberately close to what transactional
// mail clients render reliably: inline styles, a single column, one button.
const notificationEmailTemplate = `
<!doctype html>
<html lang="en">
<head><meta charset="utf-8" /></head>
<body style="font-family: Arial, sans-serif; color:#1f2937; margin:0;">
  <div style="max-width:600px;margin:0 auto;border:1px solid #e5e7eb;border-radius:8px;padding:24px;">
    <h2 style="color:#111827;margin-bottom:8px;">Fleet operations - new notification</h2>
    <p style="font-size:14px;line-height:1.6;">Hello {{.Name}},</p>
    <p style="font-size:14px;line-height:1.6;">{{.Message}}</p>
    <p style="font-size:14px;line-height:1.6;">
      Category: <strong>{{.Category}}</strong><br/>
      Date: {{.Date}}
    </p>
    <div style="margin:24px 0;">
      <a href="{{.ReadURL}}" style="display:inline-block;background:#2563eb;color:#fff;padding:12px 20px;border-radius:6px;text-decoration:none;font-weight:600;">
        Mark as read
      </a>
    </div>
    <p style="font-size:12px;color:#6b7280;">If you have already read this, you can ignore this message.</p>
  </div>
</body>
</html>
`

var emailTmpl = template.Must(template.New("notification_email").Parse(notificationEmailTemplate))

type emailData struct {
	Name     string
	Message  string
	Category string
	Date     string
	ReadURL  template.URL
}

// RenderEmailBody produces the HTML body for one recipient. Message and name
// are escaped by html/template; the read link is trusted output of the signer.
func RenderEmailBody(name, message, category string, at time.Time, readURL string) (string, error) {
	if name == "" {
		name = "colleague"
	}

	var buf bytes.Buffer
	err := emailTmpl.Execute(&buf, emailData{
		Name:     name,
		Message:  message,
		Category: category,
		Date:     at.Format("2006-01-02 15:04 MST"),
		ReadURL:  template.URL(readURL),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
