package email

import (
	"fmt"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"crmmail/models"
	"crmmail/utils"
)

// openIMAP returns a logged in client. Without implicit TLS the connection is
// upgraded with STARTTLS whenever the server offers it.
func (s *Service) openIMAP(e models.Endpoint) (*client.Client, error) {
	conn, err := s.dial(e)
	if err != nil {
		return nil, err
	}

	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, atStage(stageConnect, err)
	}
	c.ErrorLog = imapErrorLog{s.log.WithField("protocol", ProtocolIMAP)}
	c.Timeout = s.opts.Timeout

	if !e.Secure {
		if ok, _ := c.SupportStartTLS(); ok {
			if err := c.StartTLS(s.tlsConfig(e.Host)); err != nil {
				c.Terminate()
				return nil, atStage(stageTLS, err)
			}
		}
	}

	if err := c.Login(e.User, e.Password); err != nil {
		c.Terminate()
		return nil, atStage(stageAuth, err)
	}

	return c, nil
}

// closeIMAP logs out and closes the socket whether or not the server
// answered the LOGOUT.
func (s *Service) closeIMAP(c *client.Client) {
	if err := c.Logout(); err != nil {
		s.log.Debug("IMAP logout failed: %v", err)
	}
	c.Terminate()
}

// listFolders runs LIST "" "*".
func listFolders(c *client.Client) ([]models.Folder, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	var folders []models.Folder
	for mb := range mailboxes {
		folders = append(folders, models.Folder{
			Name:       mb.Name,
			Delimiter:  mb.Delimiter,
			Attributes: mb.Attributes,
		})
	}

	if err := <-done; err != nil {
		return nil, atStage(stageCommand, fmt.Errorf("error listing folders: %w", err))
	}

	return folders, nil
}

// imapErrorLog routes go-imap client diagnostics to the debug log.
type imapErrorLog struct {
	log *utils.Logger
}

func (l imapErrorLog) Printf(format string, v ...interface{}) {
	l.log.Debug(format, v...)
}

func (l imapErrorLog) Println(v ...interface{}) {
	l.log.Debug("%s", fmt.Sprint(v...))
}
