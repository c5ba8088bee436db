package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmmail/models"
)

func TestProbeSucceeds(t *testing.T) {
	imapServer := startIMAP(t)
	smtpServer := startSMTP(t)

	result := newTestService().Probe(models.EmailSettings{
		Email: smtpUser,
		IMAP:  imapServer.endpoint(),
		SMTP:  smtpServer.endpoint(),
	})

	assert.True(t, result.Overall)
	assert.True(t, result.IMAP.Success)
	assert.Equal(t, "Found 1 folders: INBOX", result.IMAP.Message)
	assert.True(t, result.SMTP.Success)
	assert.Empty(t, result.SMTP.Code)
	assert.Empty(t, smtpServer.messages(), "probe must not submit a message")
}

func TestProbeSequential(t *testing.T) {
	imapServer := startIMAP(t)
	smtpServer := startSMTP(t)

	svc := NewService(Options{Timeout: 2 * time.Second})
	result := svc.Probe(models.EmailSettings{
		Email: smtpUser,
		IMAP:  imapServer.endpoint(),
		SMTP:  smtpServer.endpoint(),
	})
	assert.True(t, result.Overall)
}

func TestProbeReportsEachProtocol(t *testing.T) {
	imapServer := startIMAP(t)
	smtpServer := startSMTP(t)

	smtpEndpoint := smtpServer.endpoint()
	smtpEndpoint.Password = "wrong"

	result := newTestService().Probe(models.EmailSettings{
		Email: smtpUser,
		IMAP:  imapServer.endpoint(),
		SMTP:  smtpEndpoint,
	})

	assert.False(t, result.Overall)
	assert.True(t, result.IMAP.Success)
	assert.False(t, result.SMTP.Success)
	assert.Equal(t, string(KindAuthFailed), result.SMTP.Code)
	assert.Equal(t, "Authentication failed. Check your username and password.", result.SMTP.Details)
	assert.NotEmpty(t, result.SMTP.Error)
}

func TestProbeIMAPAuthFailure(t *testing.T) {
	imapServer := startIMAP(t)
	smtpServer := startSMTP(t)

	imapEndpoint := imapServer.endpoint()
	imapEndpoint.Password = "wrong"

	result := newTestService().Probe(models.EmailSettings{
		Email: smtpUser,
		IMAP:  imapEndpoint,
		SMTP:  smtpServer.endpoint(),
	})

	assert.False(t, result.Overall)
	assert.Equal(t, string(KindAuthFailed), result.IMAP.Code)
	assert.True(t, result.SMTP.Success)
}

func TestProbeRelayDenied(t *testing.T) {
	imapServer := startIMAP(t)
	smtpServer := startSMTP(t)
	smtpServer.relayDenied = true

	result := newTestService().Probe(models.EmailSettings{
		Email: smtpUser,
		IMAP:  imapServer.endpoint(),
		SMTP:  smtpServer.endpoint(),
	})

	assert.False(t, result.Overall)
	assert.Equal(t, string(KindRelayDenied), result.SMTP.Code)
	assert.Contains(t, result.SMTP.Details, "Relay not permitted")
}

func TestProbeNetworkFailures(t *testing.T) {
	svc := NewService(Options{Timeout: 500 * time.Millisecond, ConcurrentProbe: true})

	tests := []struct {
		name     string
		endpoint models.Endpoint
		want     ErrorKind
	}{
		{
			name:     "refused",
			endpoint: models.Endpoint{Host: "127.0.0.1", Port: closedPort(t), User: "u", Password: "p"},
			want:     KindConnectionRefused,
		},
		{
			name:     "silent server",
			endpoint: models.Endpoint{Host: "127.0.0.1", Port: silentServer(t), User: "u", Password: "p"},
			want:     KindTimeout,
		},
		{
			name:     "unresolvable host",
			endpoint: models.Endpoint{Host: "mail.does-not-exist.invalid", Port: 993, Secure: true, User: "u", Password: "p"},
			want:     KindHostNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := svc.Probe(models.EmailSettings{Email: "a@example.com", IMAP: tt.endpoint, SMTP: tt.endpoint})
			assert.False(t, result.Overall)
			assert.Equal(t, string(tt.want), result.IMAP.Code)
			assert.Equal(t, string(tt.want), result.SMTP.Code)
			assert.NotEqual(t, string(KindAuthFailed), result.IMAP.Code)
		})
	}
}

func TestProbeImplicitTLSAgainstPlaintextServer(t *testing.T) {
	imapServer := startIMAP(t)

	endpoint := imapServer.endpoint()
	endpoint.Secure = true

	result := newTestService().probeIMAP(endpoint)
	require.False(t, result.Success)
	assert.Equal(t, string(KindTLSFailed), result.Code)
}

func TestSessionsUpgradeWithStartTLS(t *testing.T) {
	imapServer := startIMAPWithStartTLS(t)
	smtpServer := startSMTPWithStartTLS(t)
	svc := newTrustingTestService()

	ic, err := svc.openIMAP(imapServer.endpoint())
	require.NoError(t, err)
	assert.True(t, ic.IsTLS())
	svc.closeIMAP(ic)

	sc, err := svc.openSMTP(smtpServer.endpoint())
	require.NoError(t, err)
	_, encrypted := sc.TLSConnectionState()
	assert.True(t, encrypted)
	svc.closeSMTP(sc)
	assert.Equal(t, 1, smtpServer.encryptedLogins())
}

func TestSessionsStayPlaintextWithoutStartTLS(t *testing.T) {
	imapServer := startIMAP(t)
	smtpServer := startSMTP(t)
	svc := newTestService()

	ic, err := svc.openIMAP(imapServer.endpoint())
	require.NoError(t, err)
	assert.False(t, ic.IsTLS())
	svc.closeIMAP(ic)

	sc, err := svc.openSMTP(smtpServer.endpoint())
	require.NoError(t, err)
	_, encrypted := sc.TLSConnectionState()
	assert.False(t, encrypted)
	svc.closeSMTP(sc)
	assert.Zero(t, smtpServer.encryptedLogins())
}

func TestConnectivityOverStartTLS(t *testing.T) {
	imapServer := startIMAPWithStartTLS(t)
	smtpServer := startSMTPWithStartTLS(t)

	result := newTrustingTestService().Probe(models.EmailSettings{
		Email: smtpUser,
		IMAP:  imapServer.endpoint(),
		SMTP:  smtpServer.endpoint(),
	})

	assert.True(t, result.Overall, "%+v", result)
	assert.Equal(t, "Found 1 folders: INBOX", result.IMAP.Message)
	assert.Equal(t, 1, smtpServer.encryptedLogins())
}

func TestUntrustedCertificateIsTLSFailure(t *testing.T) {
	imapServer := startIMAPWithStartTLS(t)
	smtpServer := startSMTPWithStartTLS(t)

	result := newTestService().Probe(models.EmailSettings{
		Email: smtpUser,
		IMAP:  imapServer.endpoint(),
		SMTP:  smtpServer.endpoint(),
	})

	assert.False(t, result.Overall)
	assert.Equal(t, string(KindTLSFailed), result.IMAP.Code, result.IMAP.Error)
	assert.Equal(t, string(KindTLSFailed), result.SMTP.Code, result.SMTP.Error)
	assert.Zero(t, smtpServer.encryptedLogins())
}
