package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

var messageTemplate = template.Must(template.New("message").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
{{if .Name}}<p>Hi {{.Name}},</p>{{end}}
<p>{{.Text}}</p>
<p style="color: #888; font-size: 12px;">Reply to this email to get back in touch with your agent.</p>
</body>
</html>`))

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

func renderMessage(name, text string) (string, error) {
	var body bytes.Buffer
	if err := messageTemplate.Execute(&body, MessageEmailData{Name: name, Text: text}); err != nil {
		return "", fmt.Errorf("render email template: %w", err)
	}
	return body.String(), nil
}

// SendMessage sends one conversation message to a lead over SMTP.
func (s *EmailSender) SendMessage(to, name, subject, text string) error {
	if s.Host == "" {
		return fmt.Errorf("smtp not configured")
	}

	body, err := renderMessage(name, text)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", body)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send smtp email: %w", err)
	}
	return nil
}
