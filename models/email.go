package models

import "time"

// Address is a mailbox address with an optional display name
type Address struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// EmailMessage is the locally persisted copy of a remote inbox message
type EmailMessage struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountId"`
	MessageID   string    `json:"messageId"`
	Subject     string    `json:"subject"`
	From        Address   `json:"from"`
	To          []Address `json:"to"`
	Text        string    `json:"text"`
	HTML        string    `json:"html"`
	Date        time.Time `json:"date"`
	IsRead      bool      `json:"isRead"`
	IsImportant bool      `json:"isImportant"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Attachment is a file attached to an outgoing message
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"` // base64 in JSON
}

// OutgoingMessage is a message composed by the user for sending
type OutgoingMessage struct {
	To          []string     `json:"to"`
	Cc          []string     `json:"cc,omitempty"`
	Bcc         []string     `json:"bcc,omitempty"`
	Subject     string       `json:"subject"`
	Text        string       `json:"text,omitempty"`
	HTML        string       `json:"html,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Folder is a remote mailbox folder
type Folder struct {
	Name       string   `json:"name"`
	Delimiter  string   `json:"delimiter"`
	Attributes []string `json:"attributes"`
}
