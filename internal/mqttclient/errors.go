package mqttclient

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/notifyhub/garage-controller/internal/domain"
)

var refused = []error{
	packets.ErrorRefusedBadProtocolVersion,
	packets.ErrorRefusedIDRejected,
	packets.ErrorRefusedServerUnavailable,
	packets.ErrorRefusedBadUsernameOrPassword,
	packets.ErrorRefusedNotAuthorised,
}

// ClassifyError maps a connection error onto an ErrorInfo. Transport
// failures carry up to three sub-codes: the TLS alert, the certificate
// verification failure, and the socket errno.
func ClassifyError(err error) *domain.ErrorInfo {
	info := &domain.ErrorInfo{Kind: domain.ErrorUnknown, Err: err}
	if err == nil {
		return info
	}

	for _, r := range refused {
		if errors.Is(err, r) {
			info.Kind = domain.ErrorConnectionRefused
			return info
		}
	}

	transport := false
	te := &info.Transport

	var errno syscall.Errno
	if errors.As(err, &errno) {
		te.SockErrno = errno
		transport = true
	}

	var alert tls.AlertError
	if errors.As(err, &alert) {
		te.TLSErr = 0x8000 | int(alert)
		transport = true
	}
	var header tls.RecordHeaderError
	if errors.As(err, &header) {
		te.TLSErr = 0x8000
		transport = true
	}

	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	switch {
	case errors.As(err, &unknownAuthority):
		te.TLSStackErr = domain.TLSStackUnknownAuthority
	case errors.As(err, &hostname):
		te.TLSStackErr = domain.TLSStackHostname
	case errors.As(err, &invalid):
		te.TLSStackErr = domain.TLSStackCertificateInvalid
	}
	if te.TLSStackErr != 0 {
		transport = true
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, packets.ErrorNetworkError) {
		transport = true
	}

	if transport {
		info.Kind = domain.ErrorTransport
	}
	return info
}
