// internal/infra/email/smtp.go
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"gl3e_manager/internal/domain/notify"
)

// transportMode is one SMTP negotiation strategy.
type transportMode int

const (
	modeImplicitTLS transportMode = iota // SMTPS, TLS from the first byte
	modeSTARTTLS                         // plain connect, upgrade after EHLO
)

func (m transportMode) String() string {
	if m == modeImplicitTLS {
		return "implicit-tls"
	}
	return "starttls"
}

// SMTPConfig holds mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool // preferred mode on non-465 ports: true = implicit TLS
	Timeout  time.Duration
}

// SMTPClient is the single email provider. A send walks an ordered list of
// transport modes until one negotiation succeeds; the list is conditioned on
// the port because 465 only ever speaks implicit TLS.
type SMTPClient struct {
	cfg SMTPConfig
}

func NewSMTPClient(cfg SMTPConfig) *SMTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &SMTPClient{cfg: cfg}
}

func (c *SMTPClient) Name() string { return "smtp" }

// Configured reports whether the client has usable relay settings.
func (c *SMTPClient) Configured() bool {
	return c.cfg.Host != "" && c.cfg.Username != "" && c.cfg.Password != ""
}

func (c *SMTPClient) Send(ctx context.Context, destination string, p notify.Payload) error {
	msg := c.buildMessage(destination, p)

	var lastErr error
	for _, mode := range buildTransportModes(c.cfg.Port, c.cfg.UseTLS) {
		if err := c.sendWithMode(ctx, mode, destination, msg); err != nil {
			lastErr = fmt.Errorf("smtp %s via %s:%d: %w", mode, c.cfg.Host, c.cfg.Port, err)
			continue
		}
		return nil
	}
	return lastErr
}

// buildTransportModes returns the negotiation strategies to try in order.
// Port 465 is SMTPS and uses implicit TLS only; other ports try the
// configured mode first, then STARTTLS, then implicit TLS as a last resort.
func buildTransportModes(port int, useTLS bool) []transportMode {
	if port == 465 {
		return []transportMode{modeImplicitTLS}
	}

	var modes []transportMode
	push := func(m transportMode) {
		for _, existing := range modes {
			if existing == m {
				return
			}
		}
		modes = append(modes, m)
	}

	if useTLS {
		push(modeImplicitTLS)
	} else {
		push(modeSTARTTLS)
	}
	push(modeSTARTTLS)
	push(modeImplicitTLS)
	return modes
}

func (c *SMTPClient) sendWithMode(ctx context.Context, mode transportMode, to string, msg []byte) error {
	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))
	tlsCfg := &tls.Config{ServerName: c.cfg.Host}

	dialer := &net.Dialer{Timeout: c.cfg.Timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	_ = conn.SetDeadline(time.Now().Add(c.cfg.Timeout))

	if mode == modeImplicitTLS {
		tlsConn := tls.Client(conn, tlsCfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return fmt.Errorf("tls handshake: %w", err)
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, c.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if mode == modeSTARTTLS {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			return fmt.Errorf("server does not support STARTTLS")
		}
		if err := client.StartTLS(tlsCfg); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if c.cfg.Username != "" {
		auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.Mail(c.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return client.Quit()
}

func (c *SMTPClient) buildMessage(to string, p notify.Payload) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", p.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(p.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// MaskEmail hides the local part of an address for logs.
func MaskEmail(addr string) string {
	at := strings.Index(addr, "@")
	if at <= 0 {
		return "***"
	}
	visible := 3
	if at < visible {
		visible = at
	}
	return addr[:visible] + "***" + addr[at:]
}
