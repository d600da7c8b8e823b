package mailer

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl"))
)

// Subjects of the templated messages.
const (
	ReminderSubject    = "We Miss You! Come Back to SuperAdmin"
	WelcomeBackSubject = "Welcome Back to SuperAdmin!"
)

// Recipient carries the values interpolated into templates.
type Recipient struct {
	Name           string
	Email          string
	LoginURL       string
	InactivityDays int
}

// ReminderMessage renders the inactivity reminder for r.
func ReminderMessage(r Recipient) (Message, error) {
	return render("reminder", ReminderSubject, r)
}

// WelcomeBackMessage renders the welcome-back note for r.
func WelcomeBackMessage(r Recipient) (Message, error) {
	return render("welcome_back", WelcomeBackSubject, r)
}

func render(name, subject string, r Recipient) (Message, error) {
	var html, text bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html.tmpl", r); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	if err := textTemplates.ExecuteTemplate(&text, name+".txt.tmpl", r); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	return Message{To: r.Email, Subject: subject, HTML: html.String(), Text: text.String()}, nil
}
