package email

import (
	"sort"
	"strings"

	"golang.org/x/net/idna"

	"crmmail/models"
)

// ServerDefaults are the default connection values for one protocol.
type ServerDefaults struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Secure bool   `json:"secure"`
}

// Provider describes a well-known mail provider.
type Provider struct {
	Key   string         `json:"key"`
	Name  string         `json:"name"`
	IMAP  ServerDefaults `json:"imap"`
	SMTP  ServerDefaults `json:"smtp"`
	Notes []string       `json:"notes"`
}

var providers = map[string]Provider{
	models.ProviderGmail: {
		Key:  models.ProviderGmail,
		Name: "Gmail",
		IMAP: ServerDefaults{Host: "imap.gmail.com", Port: 993, Secure: true},
		SMTP: ServerDefaults{Host: "smtp.gmail.com", Port: 587, Secure: false},
		Notes: []string{
			"Use an App Password if 2-factor authentication is enabled",
			"Enable IMAP in Gmail settings under Forwarding and POP/IMAP",
		},
	},
	models.ProviderOutlook: {
		Key:  models.ProviderOutlook,
		Name: "Outlook / Hotmail",
		IMAP: ServerDefaults{Host: "outlook.office365.com", Port: 993, Secure: true},
		SMTP: ServerDefaults{Host: "smtp-mail.outlook.com", Port: 587, Secure: false},
		Notes: []string{
			"Use an App Password if 2-factor authentication is enabled",
			"Works for outlook.com, hotmail.com and live.com addresses",
		},
	},
	models.ProviderYahoo: {
		Key:  models.ProviderYahoo,
		Name: "Yahoo Mail",
		IMAP: ServerDefaults{Host: "imap.mail.yahoo.com", Port: 993, Secure: true},
		SMTP: ServerDefaults{Host: "smtp.mail.yahoo.com", Port: 587, Secure: false},
		Notes: []string{
			"An App Password is required",
			"Generate it under Account Security in Yahoo settings",
		},
	},
	models.ProviderICloud: {
		Key:  models.ProviderICloud,
		Name: "iCloud Mail",
		IMAP: ServerDefaults{Host: "imap.mail.me.com", Port: 993, Secure: true},
		SMTP: ServerDefaults{Host: "smtp.mail.me.com", Port: 587, Secure: false},
		Notes: []string{
			"An app-specific password is required",
			"Generate it at appleid.apple.com",
		},
	},
	models.ProviderProtonMail: {
		Key:  models.ProviderProtonMail,
		Name: "Proton Mail (Bridge)",
		IMAP: ServerDefaults{Host: "127.0.0.1", Port: 1143, Secure: false},
		SMTP: ServerDefaults{Host: "127.0.0.1", Port: 1025, Secure: false},
		Notes: []string{
			"Requires Proton Mail Bridge running locally",
			"Use the credentials shown in the Bridge application",
		},
	},
	models.ProviderZoho: {
		Key:  models.ProviderZoho,
		Name: "Zoho Mail",
		IMAP: ServerDefaults{Host: "imap.zoho.com", Port: 993, Secure: true},
		SMTP: ServerDefaults{Host: "smtp.zoho.com", Port: 587, Secure: false},
		Notes: []string{
			"Enable IMAP access in Zoho Mail settings",
			"Use an App Password if 2-factor authentication is enabled",
		},
	},
	models.ProviderCustom: {
		Key:  models.ProviderCustom,
		Name: "Custom IMAP/SMTP",
		IMAP: ServerDefaults{Port: 993, Secure: true},
		SMTP: ServerDefaults{Port: 587, Secure: false},
		Notes: []string{
			"Get the server settings from your email provider",
		},
	},
}

var recommendations = map[string][]string{
	models.ProviderGmail: {
		"Enable 2-factor authentication and create an App Password",
		"Use the App Password instead of your regular password",
		"Make sure IMAP is enabled in Gmail settings",
	},
	models.ProviderOutlook: {
		"Use your full email address as the username",
		"Create an App Password if 2-factor authentication is on",
		"Check that IMAP access is allowed for your account",
	},
	models.ProviderYahoo: {
		"Generate an App Password in Yahoo Account Security",
		"Use the App Password instead of your regular password",
	},
	models.ProviderICloud: {
		"Generate an app-specific password at appleid.apple.com",
		"Use your full iCloud email address as the username",
	},
	models.ProviderProtonMail: {
		"Install and start Proton Mail Bridge",
		"Copy the IMAP and SMTP credentials from the Bridge application",
	},
	models.ProviderZoho: {
		"Enable IMAP access in Zoho Mail settings",
		"Use an App Password if 2-factor authentication is on",
	},
}

var genericRecommendations = []string{
	"Double-check the server hostnames and port numbers",
	"Verify your username and password",
	"Check that your firewall allows outbound connections on the mail ports",
}

// Known mail domains and the provider serving them.
var providerDomains = map[string]string{
	"gmail.com":      models.ProviderGmail,
	"googlemail.com": models.ProviderGmail,
	"outlook.com":    models.ProviderOutlook,
	"hotmail.com":    models.ProviderOutlook,
	"live.com":       models.ProviderOutlook,
	"msn.com":        models.ProviderOutlook,
	"yahoo.com":      models.ProviderYahoo,
	"yahoo.co.uk":    models.ProviderYahoo,
	"ymail.com":      models.ProviderYahoo,
	"icloud.com":     models.ProviderICloud,
	"me.com":         models.ProviderICloud,
	"mac.com":        models.ProviderICloud,
	"protonmail.com": models.ProviderProtonMail,
	"proton.me":      models.ProviderProtonMail,
	"pm.me":          models.ProviderProtonMail,
	"zoho.com":       models.ProviderZoho,
	"zohomail.com":   models.ProviderZoho,
}

// LookupProvider returns the provider registered under key. Keys are case
// insensitive.
func LookupProvider(key string) (Provider, bool) {
	p, ok := providers[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Provider{}, false
	}
	p.Notes = append([]string(nil), p.Notes...)
	return p, true
}

// ProviderKeys lists every provider key in sorted order, custom last.
func ProviderKeys() []string {
	keys := make([]string, 0, len(providers))
	for k := range providers {
		if k != models.ProviderCustom {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return append(keys, models.ProviderCustom)
}

// Providers returns the whole catalog in ProviderKeys order.
func Providers() []Provider {
	keys := ProviderKeys()
	out := make([]Provider, 0, len(keys))
	for _, k := range keys {
		p, _ := LookupProvider(k)
		out = append(out, p)
	}
	return out
}

// Recommendations returns setup tips for the provider followed by generic
// troubleshooting steps.
func Recommendations(key string) []string {
	tips := append([]string(nil), recommendations[strings.ToLower(strings.TrimSpace(key))]...)
	return append(tips, genericRecommendations...)
}

// DetectProvider guesses the provider key from an email address domain.
// Internationalized domains are compared in their ASCII form.
func DetectProvider(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return models.ProviderCustom
	}
	domain := strings.TrimSpace(address[at+1:])
	if ascii, err := idna.Lookup.ToASCII(domain); err == nil {
		domain = ascii
	}
	if key, ok := providerDomains[strings.ToLower(domain)]; ok {
		return key
	}
	return models.ProviderCustom
}

// Apply fills in connection values the caller left unset. An empty host
// takes the provider host. A zero port takes both the provider port and its
// TLS mode.
func (p Provider) Apply(s models.EmailSettings) models.EmailSettings {
	s.IMAP = applyDefaults(s.IMAP, p.IMAP)
	s.SMTP = applyDefaults(s.SMTP, p.SMTP)
	return s
}

func applyDefaults(e models.Endpoint, d ServerDefaults) models.Endpoint {
	if strings.TrimSpace(e.Host) == "" {
		e.Host = d.Host
	}
	if e.Port == 0 {
		e.Port = d.Port
		e.Secure = d.Secure
	}
	return e
}
