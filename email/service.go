package email

import (
	"crypto/tls"
	"strings"
	"time"

	"crmmail/config"
	"crmmail/utils"
)

// DefaultMailbox is the folder synchronised and acted upon.
const DefaultMailbox = "INBOX"

// Options tune the connectivity layer.
type Options struct {
	Timeout         time.Duration // dial, greeting, auth and per-command bound
	SyncWindow      time.Duration // how far back a sync searches
	UnseenOnly      bool          // restrict sync to messages without \Seen
	TLSSkipVerify   bool
	ConcurrentProbe bool
	Mailbox         string
	LocalName       string // EHLO name
}

// OptionsFromConfig maps the mail section of the configuration.
func OptionsFromConfig(cfg config.MailConfig) Options {
	return Options{
		Timeout:         cfg.Timeout,
		SyncWindow:      cfg.SyncWindow,
		UnseenOnly:      cfg.UnseenOnly,
		TLSSkipVerify:   cfg.TLSSkipVerify,
		ConcurrentProbe: cfg.ConcurrentProbe,
	}
}

// Service opens short-lived IMAP and SMTP sessions on behalf of an account.
// Every call acquires its own connection and releases it before returning.
type Service struct {
	opts Options
	log  *utils.Logger
	now  func() time.Time
}

// NewService creates a Service, filling zero options with defaults.
func NewService(opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.SyncWindow <= 0 {
		opts.SyncWindow = 30 * 24 * time.Hour
	}
	if opts.Mailbox == "" {
		opts.Mailbox = DefaultMailbox
	}
	if opts.LocalName == "" {
		opts.LocalName = "localhost"
	}
	return &Service{
		opts: opts,
		log:  utils.Log.WithField("component", "email"),
		now:  time.Now,
	}
}

func (s *Service) tlsConfig(host string) *tls.Config {
	return &tls.Config{
		ServerName:         strings.TrimSpace(host),
		InsecureSkipVerify: s.opts.TLSSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}
}
