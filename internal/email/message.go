package email

import (
	"fmt"
	"strings"
)

type Message struct {
	Subject string
	Body    string
}

// BuildNotificationEmail renders a notification as a plain-text email.
func BuildNotificationEmail(clubName, recipientName, title, message string) Message {
	clubName = strings.TrimSpace(clubName)
	if clubName == "" {
		clubName = "Padelicious"
	}
	greeting := "Hello,"
	if name := strings.TrimSpace(recipientName); name != "" {
		greeting = fmt.Sprintf("Hello %s,", name)
	}

	var body strings.Builder
	body.WriteString(greeting)
	body.WriteString("\n\n")
	body.WriteString(strings.TrimSpace(message))
	body.WriteString("\n\n")
	body.WriteString("See you on court,\n")
	body.WriteString(clubName)
	body.WriteString("\n")

	return Message{
		Subject: fmt.Sprintf("[%s] %s", clubName, strings.TrimSpace(title)),
		Body:    body.String(),
	}
}
