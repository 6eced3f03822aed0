package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/YelzhanWeb/restaurant/internal/config"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendComposesMultipartMessage(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"})

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		assert.Nil(t, a)
		assert.Equal(t, "noreply@example.com", from)
		return nil
	}

	err := m.Send(context.Background(), interfaces.Mail{
		To:       []string{"admin@example.com"},
		Subject:  "⚠️ Low Stock Alert",
		TextBody: "- Flour: 1 kg (Min: 5 kg)",
		HTMLBody: "<li>Flour</li>",
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"admin@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "To: admin@example.com\r\n")
	assert.Contains(t, gotMsg, "Subject: =?utf-8?q?")
	assert.Contains(t, gotMsg, "multipart/alternative")
	assert.Contains(t, gotMsg, "- Flour: 1 kg (Min: 5 kg)")
	assert.Contains(t, gotMsg, "<li>Flour</li>")
	assert.True(t, strings.Index(gotMsg, "text/plain") < strings.Index(gotMsg, "text/html"))
}

func TestSendErrors(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "smtp.example.com", Port: 25, Username: "u", Password: "p", From: "ops@example.com"})
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		assert.NotNil(t, a)
		return errors.New("connection refused")
	}

	assert.Error(t, m.Send(context.Background(), interfaces.Mail{}))
	assert.ErrorContains(t, m.Send(context.Background(), interfaces.Mail{To: []string{"a@b.c"}, TextBody: "x"}), "connection refused")
}

func TestSendUsesBareEnvelopeSender(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "localhost", Port: 1025, From: "Restaurant <no-reply@restaurant.local>"})

	var (
		gotFrom string
		gotMsg  string
	)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotFrom, gotMsg = from, string(msg)
		return nil
	}

	require.NoError(t, m.Send(context.Background(), interfaces.Mail{
		To:       []string{"inventory@restaurant.local"},
		Subject:  "Low stock",
		TextBody: "- Flour: 1 kg (Min: 5 kg)",
	}))

	assert.Equal(t, "no-reply@restaurant.local", gotFrom)
	assert.Contains(t, gotMsg, "From: \"Restaurant\" <no-reply@restaurant.local>\r\n")
}

func TestSendRejectsMalformedSender(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "localhost", Port: 1025, From: "Restaurant <no-reply"})
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		t.Fatal("mail must not be sent with an unparsable sender")
		return nil
	}

	err := m.Send(context.Background(), interfaces.Mail{To: []string{"a@b.c"}, TextBody: "x"})
	assert.ErrorContains(t, err, "invalid sender address")
}
