package notify

import "fmt"

type Email struct {
	To      string
	Subject string
	Body    string
}

const invitationSubject = "Your Invitation to Join ResiTrack"

const invitationBody = `Hello %s,

You have been invited to join your society on ResiTrack.

Please download the app and use the following details to register:
Email: %s
Invitation Code: %s

Thank you,
Your Society Admin`

func ComposeInvitationEmail(name, email, code string) Email {
	return Email{
		To:      email,
		Subject: invitationSubject,
		Body:    fmt.Sprintf(invitationBody, name, email, code),
	}
}
