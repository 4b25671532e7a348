// Package deeplink builds the outbound links the directory hands to browsers:
// map searches, WhatsApp chats and mail drafts. Nothing here performs I/O.
package deeplink

import (
	"net/url"
	"strings"
)

const (
	mapSearchBase = "https://www.google.com/maps/search/?api=1&query="
	whatsAppBase  = "https://wa.me/"
)

// MapSearch returns a map-search URL for a free-text location query
func MapSearch(query string) string {
	return mapSearchBase + url.QueryEscape(strings.TrimSpace(query))
}

// WhatsApp returns a chat link for phone with an optional prefilled message.
// Every non-digit character is stripped from phone, so "+91 98827-70709"
// and "919882770709" produce the same link.
func WhatsApp(phone, text string) string {
	link := whatsAppBase + Digits(phone)
	if text != "" {
		link += "?text=" + url.QueryEscape(text)
	}
	return link
}

// Mailto returns a mailto URL. Subject and body are percent-encoded with
// spaces as %20, which mail clients expect instead of '+'.
func Mailto(to, subject, body string) string {
	var params []string
	if subject != "" {
		params = append(params, "subject="+escape(subject))
	}
	if body != "" {
		params = append(params, "body="+escape(body))
	}
	link := "mailto:" + to
	if len(params) > 0 {
		link += "?" + strings.Join(params, "&")
	}
	return link
}

// Digits keeps only the ASCII digits of s
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
