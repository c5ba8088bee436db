package email

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/emersion/go-smtp"
)

// Protocol names a mail protocol.
type Protocol string

const (
	ProtocolIMAP Protocol = "IMAP"
	ProtocolSMTP Protocol = "SMTP"
)

// ErrorKind classifies why a connection attempt failed.
type ErrorKind string

const (
	KindHostNotFound      ErrorKind = "host_not_found"
	KindConnectionRefused ErrorKind = "connection_refused"
	KindTimeout           ErrorKind = "timeout"
	KindAuthFailed        ErrorKind = "auth_failed"
	KindTLSFailed         ErrorKind = "tls_failed"
	KindRelayDenied       ErrorKind = "relay_denied"
	KindUnknown           ErrorKind = "unknown"
)

// Failure is a classified connection error with a remediation hint.
type Failure struct {
	Kind    ErrorKind `json:"code"`
	Message string    `json:"error"`
	Hint    string    `json:"details"`
}

// ConnectError is returned by every operation that talks to a mail server.
type ConnectError struct {
	Protocol Protocol
	Failure  Failure
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Protocol, e.Failure.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// newConnectError classifies err on behalf of protocol.
func newConnectError(protocol Protocol, err error) *ConnectError {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce
	}
	return &ConnectError{Protocol: protocol, Failure: Classify(protocol, err), Err: err}
}

// stage records where in a session an error happened.
type stage int

const (
	stageConnect stage = iota
	stageTLS
	stageAuth
	stageEnvelope
	stageCommand
)

type stageError struct {
	stage stage
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func atStage(s stage, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: s, err: err}
}

func stageOf(err error) (stage, bool) {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage, true
	}
	return 0, false
}

// Classify maps a low level socket, TLS or protocol error onto an ErrorKind.
// Network causes are checked before protocol replies, so an unresolvable host
// is never reported as an authentication problem.
func Classify(protocol Protocol, err error) Failure {
	kind := classifyKind(protocol, err)
	return Failure{Kind: kind, Message: err.Error(), Hint: hint(protocol, kind, err)}
}

func classifyKind(protocol Protocol, err error) ErrorKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindHostNotFound
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindConnectionRefused
	}
	if isTimeout(err) {
		return KindTimeout
	}
	if isTLSFailure(err) {
		return KindTLSFailed
	}

	st, staged := stageOf(err)
	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		switch {
		case smtpErr.Code == 535 || smtpErr.Code == 534 || smtpErr.Code == 530:
			return KindAuthFailed
		case protocol == ProtocolSMTP && isRelayReply(smtpErr):
			return KindRelayDenied
		}
	}
	if staged && st == stageAuth {
		return KindAuthFailed
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such host"), strings.Contains(msg, "getaddrinfo"):
		return KindHostNotFound
	case strings.Contains(msg, "connection refused"):
		return KindConnectionRefused
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"), strings.Contains(msg, "deadline exceeded"):
		return KindTimeout
	case protocol == ProtocolSMTP && strings.Contains(msg, "relay"):
		return KindRelayDenied
	case strings.Contains(msg, "authenticat"), strings.Contains(msg, "invalid credentials"),
		strings.Contains(msg, "login failed"), strings.Contains(msg, "bad username or password"):
		return KindAuthFailed
	case strings.Contains(msg, "starttls"), strings.Contains(msg, "tls:"), strings.Contains(msg, "x509:"):
		return KindTLSFailed
	}
	return KindUnknown
}

func hint(protocol Protocol, kind ErrorKind, err error) string {
	switch kind {
	case KindHostNotFound:
		return fmt.Sprintf("Host not found. Check the %s host address.", protocol)
	case KindConnectionRefused:
		return fmt.Sprintf("Connection refused. Check the %s port number.", protocol)
	case KindTimeout:
		return "Connection timeout. Check your internet connection and firewall settings."
	case KindAuthFailed:
		return "Authentication failed. Check your username and password."
	case KindTLSFailed:
		return "TLS negotiation failed. Try enabling SSL/TLS or check port settings."
	case KindRelayDenied:
		return "Relay not permitted. Check if your email provider allows external SMTP access."
	default:
		return "Connection error: " + err.Error()
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isTLSFailure(err error) bool {
	if st, ok := stageOf(err); ok && st == stageTLS {
		return true
	}
	var (
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	return errors.As(err, &recordErr) || errors.As(err, &alertErr) || errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) || errors.As(err, &hostnameErr) || errors.As(err, &invalidErr)
}

func isRelayReply(e *smtp.SMTPError) bool {
	if strings.Contains(strings.ToLower(e.Message), "relay") {
		return true
	}
	switch e.Code {
	case 550, 551, 553, 554:
		return e.EnhancedCode == smtp.EnhancedCode{5, 7, 1}
	}
	return false
}
