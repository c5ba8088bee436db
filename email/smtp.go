package email

import (
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"crmmail/models"
)

// openSMTP returns an authenticated client. Without implicit TLS the
// connection is upgraded with STARTTLS whenever the server offers it.
func (s *Service) openSMTP(e models.Endpoint) (*smtp.Client, error) {
	c, err := s.connectSMTP(e)
	if err != nil {
		return nil, err
	}

	if !e.Secure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			// go-smtp upgrades only while setting up a client, so the
			// plaintext session is dropped and a new one negotiates TLS.
			s.closeSMTP(c)
			if c, err = s.connectSMTPStartTLS(e); err != nil {
				return nil, err
			}
		}
	}

	if err := c.Auth(saslClient(c, e)); err != nil {
		c.Close()
		return nil, atStage(stageAuth, err)
	}

	return c, nil
}

// connectSMTP dials the endpoint and exchanges greetings.
func (s *Service) connectSMTP(e models.Endpoint) (*smtp.Client, error) {
	conn, err := s.dial(e)
	if err != nil {
		return nil, err
	}

	c := smtp.NewClient(conn)
	s.setSMTPTimeouts(c)

	if err := c.Hello(s.opts.LocalName); err != nil {
		c.Close()
		return nil, atStage(stageConnect, err)
	}
	return c, nil
}

// connectSMTPStartTLS dials the endpoint, issues STARTTLS and greets the
// server again over the encrypted channel.
func (s *Service) connectSMTPStartTLS(e models.Endpoint) (*smtp.Client, error) {
	conn, err := s.dial(e)
	if err != nil {
		return nil, err
	}

	c, err := smtp.NewClientStartTLS(conn, s.tlsConfig(e.Host))
	if err != nil {
		return nil, atStage(stageTLS, err)
	}
	s.setSMTPTimeouts(c)

	// The handshake runs on the first write after STARTTLS.
	if err := c.Hello(s.opts.LocalName); err != nil {
		c.Close()
		return nil, atStage(stageTLS, err)
	}
	return c, nil
}

func (s *Service) setSMTPTimeouts(c *smtp.Client) {
	c.CommandTimeout = s.opts.Timeout
	c.SubmissionTimeout = 3 * s.opts.Timeout
}

// saslClient prefers PLAIN and falls back to LOGIN for servers that only
// advertise the latter.
func saslClient(c *smtp.Client, e models.Endpoint) sasl.Client {
	if ok, mechs := c.Extension("AUTH"); ok {
		upper := strings.Fields(strings.ToUpper(mechs))
		hasPlain, hasLogin := false, false
		for _, m := range upper {
			switch m {
			case sasl.Plain:
				hasPlain = true
			case sasl.Login:
				hasLogin = true
			}
		}
		if !hasPlain && hasLogin {
			return sasl.NewLoginClient(e.User, e.Password)
		}
	}
	return sasl.NewPlainClient("", e.User, e.Password)
}

// closeSMTP sends QUIT and closes the socket.
func (s *Service) closeSMTP(c *smtp.Client) {
	if err := c.Quit(); err != nil {
		s.log.Debug("SMTP quit failed: %v", err)
	}
	c.Close()
}
