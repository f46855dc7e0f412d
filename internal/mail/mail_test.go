package mail

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"podium/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smtpSink accepts one session at a time and records the DATA payloads.
type smtpSink struct {
	ln       net.Listener
	mu       sync.Mutex
	messages []string
	rcpts    []string
}

func startSMTPSink(t *testing.T) *smtpSink {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &smtpSink{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })
	go s.serve()
	return s
}

func (s *smtpSink) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *smtpSink) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *smtpSink) handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

	reply("220 sink ready")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250 sink")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			s.mu.Lock()
			s.rcpts = append(s.rcpts, strings.TrimSpace(line[len("RCPT TO:"):]))
			s.mu.Unlock()
			reply("250 OK")
		case cmd == "DATA":
			reply("354 go ahead")
			var body strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				body.WriteString(l)
			}
			s.mu.Lock()
			s.messages = append(s.messages, body.String())
			s.mu.Unlock()
			reply("250 queued")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func TestSMTPMailer_Send(t *testing.T) {
	sink := startSMTPSink(t)

	m, err := NewSMTPMailer(SMTPOptions{
		Host:    "127.0.0.1",
		Port:    sink.port(),
		From:    "no-reply@podium.local",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{
		To:      "ada@example.com",
		Subject: "Password Reset Request",
		Body:    "Visit http://localhost:3000/reset-password/abc",
	})
	require.NoError(t, err)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.messages, 1)
	assert.Contains(t, sink.rcpts[0], "ada@example.com")
	assert.Contains(t, sink.messages[0], "Subject: Password Reset Request")
	assert.Contains(t, sink.messages[0], "reset-password/abc")
}

func TestSMTPMailer_InvalidRecipient(t *testing.T) {
	m, err := NewSMTPMailer(SMTPOptions{Host: "127.0.0.1", Port: 2525, From: "no-reply@podium.local"})
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{To: "not an address", Subject: "x", Body: "y"})
	assert.ErrorContains(t, err, "invalid recipient")
}

func TestSMTPMailer_RequiresSender(t *testing.T) {
	_, err := NewSMTPMailer(SMTPOptions{Host: "127.0.0.1", Port: 25})
	assert.Error(t, err)
}

func TestSMTPMailer_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	m, err := NewSMTPMailer(SMTPOptions{Host: "127.0.0.1", Port: port, From: "no-reply@podium.local", Timeout: time.Second})
	require.NoError(t, err)
	err = m.Send(context.Background(), Message{To: "ada@example.com", Subject: "x", Body: "y"})
	assert.ErrorContains(t, err, "send mail")
}

func TestNew_SelectsMailer(t *testing.T) {
	m, err := New(&config.Config{MailFrom: "no-reply@podium.local"})
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	m, err = New(&config.Config{MailHost: "smtp.example.com", MailPort: 465, MailFrom: "no-reply@podium.local"})
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)
}

func TestLogMailer(t *testing.T) {
	m := NewLogMailer("no-reply@podium.local")
	assert.NoError(t, m.Send(context.Background(), Message{To: "ada@example.com", Subject: "hi"}))
	assert.Error(t, m.Send(context.Background(), Message{To: " "}))
}

