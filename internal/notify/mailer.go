package notify

import (
	"bytes"
	"context"
	"log"

	"github.com/wneessen/go-mail"
)

type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Mailer struct {
	cfg MailerConfig
}

func NewMailer(cfg MailerConfig) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg}
}

// BuildReceipt assembles the receipt message with its pickup code attached.
func (m *Mailer) BuildReceipt(r Receipt) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, err
	}
	if err := msg.To(r.To); err != nil {
		return nil, err
	}
	msg.Subject("Your BrewDrop order " + r.OrderID)
	msg.SetBodyString(mail.TypeTextHTML, ReceiptHTML(r))

	png, err := PickupQR(r.OrderID, 256)
	if err != nil {
		log.Printf("⚠️ QR code for %s: %v", r.OrderID, err)
	} else if err := msg.AttachReader("pickup-code.png", bytes.NewReader(png)); err != nil {
		log.Printf("⚠️ Attaching QR code for %s: %v", r.OrderID, err)
	}
	return msg, nil
}

func (m *Mailer) SendReceipt(ctx context.Context, r Receipt) error {
	if m.cfg.Host == "" {
		log.Printf("⚠️ SMTP not configured, receipt for %s not sent", r.OrderID)
		return nil
	}
	msg, err := m.BuildReceipt(r)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Sending receipt to", r.To)
	return client.DialAndSendWithContext(ctx, msg)
}
