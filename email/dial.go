package email

import (
	"crypto/tls"
	"net"
	"strconv"
	"strings"
	"time"

	"crmmail/models"
)

// dial connects to the endpoint and, for implicit TLS endpoints, completes
// the handshake. The returned connection carries a deadline covering the
// server greeting.
func (s *Service) dial(e models.Endpoint) (net.Conn, error) {
	addr := net.JoinHostPort(strings.TrimSpace(e.Host), strconv.Itoa(e.Port))
	dialer := &net.Dialer{Timeout: s.opts.Timeout}

	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, atStage(stageConnect, err)
	}
	if err := conn.SetDeadline(time.Now().Add(s.opts.Timeout)); err != nil {
		conn.Close()
		return nil, atStage(stageConnect, err)
	}
	if !e.Secure {
		return conn, nil
	}

	tlsConn := tls.Client(conn, s.tlsConfig(e.Host))
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, atStage(stageTLS, err)
	}
	return tlsConn, nil
}
