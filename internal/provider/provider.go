// Package provider holds the outbound send collaborators, one per
// channel type. Implementations are thin HTTP clients; real provider
// integration lives outside this system.
package provider

import "context"

type EmailMessage struct {
	To      []string
	From    string
	Subject string
	Body    string
}

type SMSMessage struct {
	To   []string
	From string
	Body string
}

type PushMessage struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]any
}

// Response is the opaque provider reply recorded into delivery logs.
type Response map[string]any

type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) (Response, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, msg SMSMessage) (Response, error)
}

type PushSender interface {
	SendPush(ctx context.Context, msg PushMessage) (Response, error)
}
