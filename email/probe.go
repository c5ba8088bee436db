package email

import (
	"fmt"
	"strings"
	"sync"

	"crmmail/models"
)

// Probe attempts an IMAP and an SMTP session against the candidate settings.
// Both attempts always run to completion, and a failure is never retried.
func (s *Service) Probe(settings models.EmailSettings) *models.ConnectivityResult {
	result := &models.ConnectivityResult{}

	probeIMAP := func() { result.IMAP = s.probeIMAP(settings.IMAP) }
	probeSMTP := func() { result.SMTP = s.probeSMTP(settings.Email, settings.SMTP) }

	if s.opts.ConcurrentProbe {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); probeIMAP() }()
		go func() { defer wg.Done(); probeSMTP() }()
		wg.Wait()
	} else {
		probeIMAP()
		probeSMTP()
	}

	result.Overall = result.IMAP.Success && result.SMTP.Success

	s.log.WithFields(map[string]interface{}{
		"email":   settings.Email,
		"imap":    result.IMAP.Success,
		"smtp":    result.SMTP.Success,
		"overall": result.Overall,
	}).Info("Connectivity probe finished")

	return result
}

func (s *Service) probeIMAP(e models.Endpoint) models.ProtocolResult {
	c, err := s.openIMAP(e)
	if err != nil {
		return failedResult(ProtocolIMAP, err)
	}
	defer s.closeIMAP(c)

	folders, err := listFolders(c)
	if err != nil {
		return failedResult(ProtocolIMAP, err)
	}

	names := make([]string, 0, 5)
	for i, f := range folders {
		if i == 5 {
			break
		}
		names = append(names, f.Name)
	}

	return models.ProtocolResult{
		Success: true,
		Message: fmt.Sprintf("Found %d folders: %s", len(folders), strings.Join(names, ", ")),
	}
}

// probeSMTP authenticates and opens a mail transaction from and to the
// account address, then resets it. Nothing is sent.
func (s *Service) probeSMTP(address string, e models.Endpoint) models.ProtocolResult {
	c, err := s.openSMTP(e)
	if err != nil {
		return failedResult(ProtocolSMTP, err)
	}
	defer s.closeSMTP(c)

	if err := c.Mail(address, nil); err != nil {
		return failedResult(ProtocolSMTP, atStage(stageEnvelope, err))
	}
	if err := c.Rcpt(address, nil); err != nil {
		return failedResult(ProtocolSMTP, atStage(stageEnvelope, err))
	}
	if err := c.Reset(); err != nil {
		return failedResult(ProtocolSMTP, atStage(stageCommand, err))
	}

	return models.ProtocolResult{
		Success: true,
		Message: "SMTP server is ready to accept messages",
	}
}

func failedResult(protocol Protocol, err error) models.ProtocolResult {
	f := newConnectError(protocol, err).Failure
	return models.ProtocolResult{
		Success: false,
		Code:    string(f.Kind),
		Error:   f.Message,
		Details: f.Hint,
	}
}
