package amqp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
)

const lowStockSubject = "⚠️ Low Stock Alert - Action Required"

var lowStockHTML = template.Must(template.New("low_stock").Parse(`<h2>⚠️ Low Stock Alert</h2>
<p>The following ingredients have fallen below minimum threshold:</p>
<ul>
{{- range . }}
<li><strong>{{ .StockName }}</strong>: {{ .Quantity }} {{ .Unit }} (Min: {{ .Min }} {{ .Unit }})</li>
{{- end }}
</ul>
<p>Please restock as soon as possible.</p>
`))

// NotificationHandler turns queued low-stock reports into admin emails.
type NotificationHandler struct {
	mailer interfaces.Mailer
	logger logger.Logger
}

func NewNotificationHandler(mailer interfaces.Mailer, logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		mailer: mailer,
		logger: logger,
	}
}

func (h *NotificationHandler) HandleLowStock(ctx context.Context, body []byte) error {
	var msg interfaces.LowStockMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse low stock message", "", nil, err)
		return err
	}
	if len(msg.Alerts) == 0 {
		return nil
	}

	mail, err := LowStockMail(msg)
	if err != nil {
		h.logger.Error("mail_render_failed", "Failed to render low stock mail", msg.OrderNumber, nil, err)
		return err
	}

	if err := h.mailer.Send(ctx, mail); err != nil {
		h.logger.Error("mail_send_failed", "Failed to send low stock mail", msg.OrderNumber, map[string]interface{}{
			"recipient": msg.Recipient,
		}, err)
		return err
	}

	h.logger.Info("low_stock_mailed", fmt.Sprintf("Low stock alert sent for %d ingredients", len(msg.Alerts)),
		msg.OrderNumber, map[string]interface{}{
			"recipient": msg.Recipient,
			"alerts":    len(msg.Alerts),
		})
	return nil
}

type alertRow struct {
	StockName string
	Quantity  string
	Min       string
	Unit      string
}

// LowStockMail renders the aggregated alert as a text and HTML mail.
func LowStockMail(msg interfaces.LowStockMessage) (interfaces.Mail, error) {
	lines := make([]string, 0, len(msg.Alerts))
	rows := make([]alertRow, 0, len(msg.Alerts))
	for _, a := range msg.Alerts {
		lines = append(lines, a.Line())
		rows = append(rows, alertRow{
			StockName: a.StockName,
			Quantity:  a.FormattedQuantity(),
			Min:       a.FormattedThreshold(),
			Unit:      a.Unit,
		})
	}

	var html bytes.Buffer
	if err := lowStockHTML.Execute(&html, rows); err != nil {
		return interfaces.Mail{}, fmt.Errorf("failed to render html body: %w", err)
	}

	text := "The following ingredients have fallen below minimum threshold:\n\n" +
		strings.Join(lines, "\n") +
		"\n\nPlease restock as soon as possible."

	return interfaces.Mail{
		To:       []string{msg.Recipient},
		Subject:  lowStockSubject,
		TextBody: text,
		HTMLBody: html.String(),
	}, nil
}
