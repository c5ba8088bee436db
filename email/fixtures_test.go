package email

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"math/big"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	imapserver "github.com/emersion/go-imap/server"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/require"

	"crmmail/models"
)

const (
	imapUser = "username"
	imapPass = "password"
	smtpUser = "sales@example.com"
	smtpPass = "smtp-secret"
)

// testIMAP is an in-process IMAP server backed by go-imap's memory backend.
type testIMAP struct {
	port  int
	inbox *memory.Mailbox
}

func startIMAP(t *testing.T) *testIMAP {
	t.Helper()
	return newTestIMAP(t, nil)
}

// startIMAPWithStartTLS advertises STARTTLS with a self-signed certificate.
func startIMAPWithStartTLS(t *testing.T) *testIMAP {
	t.Helper()
	return newTestIMAP(t, selfSignedTLS(t))
}

func newTestIMAP(t *testing.T, tlsConfig *tls.Config) *testIMAP {
	t.Helper()

	be := memory.New()
	user, err := be.Login(nil, imapUser, imapPass)
	require.NoError(t, err)
	mbox, err := user.GetMailbox(DefaultMailbox)
	require.NoError(t, err)
	inbox := mbox.(*memory.Mailbox)
	inbox.Messages = nil

	s := imapserver.New(be)
	s.AllowInsecureAuth = true
	s.TLSConfig = tlsConfig

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(l)
	t.Cleanup(func() { s.Close() })

	return &testIMAP{port: l.Addr().(*net.TCPAddr).Port, inbox: inbox}
}

// add appends a message whose Date header and internal date are date.
func (s *testIMAP) add(t *testing.T, messageID, subject string, date time.Time, flags ...string) {
	t.Helper()
	var b bytes.Buffer
	b.WriteString("From: Lead <lead@example.org>\r\n")
	b.WriteString("To: sales@example.com\r\n")
	if subject != "" {
		b.WriteString("Subject: " + subject + "\r\n")
	}
	b.WriteString("Date: " + date.Format(time.RFC1123Z) + "\r\n")
	if messageID != "" {
		b.WriteString("Message-ID: " + messageID + "\r\n")
	}
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("Body of " + subject + "\r\n")
	require.NoError(t, s.inbox.CreateMessage(flags, date, &b))
}

func (s *testIMAP) flags(t *testing.T, messageID string) []string {
	t.Helper()
	for _, msg := range s.inbox.Messages {
		if bytes.Contains(msg.Body, []byte("Message-ID: "+messageID+"\r\n")) {
			return msg.Flags
		}
	}
	t.Fatalf("message %s not in inbox", messageID)
	return nil
}

func (s *testIMAP) endpoint() models.Endpoint {
	return models.Endpoint{Host: "127.0.0.1", Port: s.port, User: imapUser, Password: imapPass}
}

// testSMTP is an in-process submission server with PLAIN auth.
type testSMTP struct {
	port        int
	mu          sync.Mutex
	relayDenied bool
	received    []receivedMessage
	tlsLogins   int
}

type receivedMessage struct {
	From string
	To   []string
	Data []byte
}

func startSMTP(t *testing.T) *testSMTP {
	t.Helper()
	return newTestSMTP(t, nil)
}

// startSMTPWithStartTLS advertises STARTTLS with a self-signed certificate.
func startSMTPWithStartTLS(t *testing.T) *testSMTP {
	t.Helper()
	return newTestSMTP(t, selfSignedTLS(t))
}

func newTestSMTP(t *testing.T, tlsConfig *tls.Config) *testSMTP {
	t.Helper()

	ts := &testSMTP{}
	s := smtp.NewServer(ts)
	s.Domain = "localhost"
	s.AllowInsecureAuth = true
	s.TLSConfig = tlsConfig
	s.ReadTimeout = 5 * time.Second
	s.WriteTimeout = 5 * time.Second

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(l)
	t.Cleanup(func() { s.Close() })

	ts.port = l.Addr().(*net.TCPAddr).Port
	return ts
}

func (ts *testSMTP) endpoint() models.Endpoint {
	return models.Endpoint{Host: "127.0.0.1", Port: ts.port, User: smtpUser, Password: smtpPass}
}

func (ts *testSMTP) messages() []receivedMessage {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]receivedMessage(nil), ts.received...)
}

// encryptedLogins counts successful logins made over TLS.
func (ts *testSMTP) encryptedLogins() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.tlsLogins
}

func (ts *testSMTP) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{server: ts, conn: c}, nil
}

type smtpSession struct {
	server *testSMTP
	conn   *smtp.Conn
	authed bool
	from   string
	to     []string
}

func (s *smtpSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *smtpSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username != smtpUser || password != smtpPass {
			return &smtp.SMTPError{Code: 535, EnhancedCode: smtp.EnhancedCode{5, 7, 8}, Message: "Authentication credentials invalid"}
		}
		s.authed = true
		if _, ok := s.conn.TLSConnectionState(); ok {
			s.server.mu.Lock()
			s.server.tlsLogins++
			s.server.mu.Unlock()
		}
		return nil
	}), nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	if !s.authed {
		return &smtp.SMTPError{Code: 530, EnhancedCode: smtp.EnhancedCode{5, 7, 0}, Message: "Authentication required"}
	}
	s.from = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.server.mu.Lock()
	denied := s.server.relayDenied
	s.server.mu.Unlock()
	if denied {
		return &smtp.SMTPError{Code: 550, EnhancedCode: smtp.EnhancedCode{5, 7, 1}, Message: "Relaying denied"}
	}
	s.to = append(s.to, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.server.mu.Lock()
	s.server.received = append(s.server.received, receivedMessage{From: s.from, To: s.to, Data: data})
	s.server.mu.Unlock()
	return nil
}

func (s *smtpSession) Reset() {
	s.from = ""
	s.to = nil
}

func (s *smtpSession) Logout() error {
	return nil
}

// closedPort returns a local port nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// silentServer accepts connections and never writes a greeting.
func silentServer(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		l.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return l.Addr().(*net.TCPAddr).Port
}

func newTestService() *Service {
	return NewService(Options{Timeout: 2 * time.Second, ConcurrentProbe: true})
}

// newTrustingTestService accepts the fixtures' self-signed certificates.
func newTrustingTestService() *Service {
	return NewService(Options{Timeout: 2 * time.Second, ConcurrentProbe: true, TLSSkipVerify: true})
}

// selfSignedTLS returns a server configuration for 127.0.0.1 and localhost.
func selfSignedTLS(t *testing.T) *tls.Config {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
	}
}

func testAccount(imap *testIMAP, smtpServer *testSMTP) *models.EmailAccount {
	account := &models.EmailAccount{ID: "acc-1", Name: "Sales", IsActive: true}
	settings := models.EmailSettings{Email: smtpUser}
	if imap != nil {
		settings.IMAP = imap.endpoint()
	}
	if smtpServer != nil {
		settings.SMTP = smtpServer.endpoint()
	}
	account.ApplySettings(settings)
	return account
}

func messageID(n int) string {
	return fmt.Sprintf("<m%d@example.com>", n)
}
