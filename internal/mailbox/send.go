package mailbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"mailpilot/internal/model"
	"mailpilot/internal/util"
)

// SendReply composes a reply to original and submits it over SMTP. The reply
// carries "Re:" subject prefixing and In-Reply-To/References headers when the
// original exposed a Message-ID. Failures are never retried here: permanent
// rejections wrap ErrSendRejected, everything else wraps ErrConnection.
func (g *Gateway) SendReply(ctx context.Context, original model.InboundMessage, body string) error {
	recipient, err := recipientAddress(original.Sender)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendRejected, err)
	}

	msg, err := buildReply(g.username, recipient, original, body, time.Now())
	if err != nil {
		return fmt.Errorf("compose reply: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	auth := sasl.NewPlainClient("", g.username, g.password)
	err = smtp.SendMail(g.smtpAddr, auth, g.username, []string{recipient}, bytes.NewReader(msg))
	if err != nil {
		var smtpErr *smtp.SMTPError
		if errors.As(err, &smtpErr) && smtpErr.Code >= 500 {
			return fmt.Errorf("%w: %v", ErrSendRejected, err)
		}
		return fmt.Errorf("%w: send via %s: %v", ErrConnection, g.smtpAddr, err)
	}
	g.log.Info("reply sent", "to", recipient, "in_reply_to", original.ID)
	return nil
}

// recipientAddress extracts the bare address from a From header value like
// `Name <user@example.com>`.
func recipientAddress(sender string) (string, error) {
	addr := util.ReplyAddress(sender)
	if addr == "" {
		return "", fmt.Errorf("invalid recipient %q", sender)
	}
	return addr, nil
}

// buildReply renders the full RFC 5322 reply message.
func buildReply(from, to string, original model.InboundMessage, body string, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(replySubject(original.Subject))
	if original.MessageID != "" {
		h.SetMsgIDList("In-Reply-To", []string{original.MessageID})
		h.SetMsgIDList("References", []string{original.MessageID})
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, body); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// replySubject prefixes "Re:" unless the subject already carries one.
func replySubject(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if trimmed == "" {
		return "Re: your message"
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "re:") {
		return trimmed
	}
	return "Re: " + trimmed
}
