package models

import "time"

// Provider tags accepted on an EmailAccount.
const (
	ProviderGmail      = "gmail"
	ProviderOutlook    = "outlook"
	ProviderYahoo      = "yahoo"
	ProviderICloud     = "icloud"
	ProviderProtonMail = "protonmail"
	ProviderZoho       = "zoho"
	ProviderCustom     = "custom"
)

// EmailAccount represents a connected mailbox owned by a user
type EmailAccount struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"userId" db:"user_id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	Provider     string     `json:"provider" db:"provider"`
	IMAPHost     string     `json:"imapHost" db:"imap_host"`
	IMAPPort     int        `json:"imapPort" db:"imap_port"`
	IMAPSecure   bool       `json:"imapSecure" db:"imap_secure"`
	IMAPUser     string     `json:"imapUser" db:"imap_user"`
	IMAPPassword string     `json:"-" db:"imap_password"` // Never expose in JSON
	SMTPHost     string     `json:"smtpHost" db:"smtp_host"`
	SMTPPort     int        `json:"smtpPort" db:"smtp_port"`
	SMTPSecure   bool       `json:"smtpSecure" db:"smtp_secure"`
	SMTPUser     string     `json:"smtpUser" db:"smtp_user"`
	SMTPPassword string     `json:"-" db:"smtp_password"` // Never expose in JSON
	IsActive     bool       `json:"isActive" db:"is_active"`
	LastSyncAt   *time.Time `json:"lastSyncAt,omitempty" db:"last_sync_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// Endpoint is one side (IMAP or SMTP) of a mailbox configuration.
type Endpoint struct {
	Host     string
	Port     int
	Secure   bool
	User     string
	Password string
}

// EmailSettings is a candidate mailbox configuration, as checked by the
// validator and the connectivity prober.
type EmailSettings struct {
	Email string
	IMAP  Endpoint
	SMTP  Endpoint
}

// Settings returns the connection settings of the account.
func (a *EmailAccount) Settings() EmailSettings {
	return EmailSettings{
		Email: a.Email,
		IMAP: Endpoint{
			Host:     a.IMAPHost,
			Port:     a.IMAPPort,
			Secure:   a.IMAPSecure,
			User:     a.IMAPUser,
			Password: a.IMAPPassword,
		},
		SMTP: Endpoint{
			Host:     a.SMTPHost,
			Port:     a.SMTPPort,
			Secure:   a.SMTPSecure,
			User:     a.SMTPUser,
			Password: a.SMTPPassword,
		},
	}
}

// ApplySettings copies endpoint values onto the account.
func (a *EmailAccount) ApplySettings(s EmailSettings) {
	a.Email = s.Email
	a.IMAPHost, a.IMAPPort, a.IMAPSecure = s.IMAP.Host, s.IMAP.Port, s.IMAP.Secure
	a.IMAPUser, a.IMAPPassword = s.IMAP.User, s.IMAP.Password
	a.SMTPHost, a.SMTPPort, a.SMTPSecure = s.SMTP.Host, s.SMTP.Port, s.SMTP.Secure
	a.SMTPUser, a.SMTPPassword = s.SMTP.User, s.SMTP.Password
}

// DisplayAddress returns the account address in "Name <email>" form when a
// name is set.
func (a *EmailAccount) DisplayAddress() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}
