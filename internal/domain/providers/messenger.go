package providers

import "context"

// Messenger delivers a plain text message to a phone number
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
}
