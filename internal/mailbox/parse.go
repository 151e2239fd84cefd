package mailbox

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/emersion/go-message/mail"

	"mailpilot/internal/model"
)

// parseMessage turns one raw RFC 5322 message into an InboundMessage. It
// prefers the first text/plain part; an HTML-only message is stripped down to
// readable text. Attachments are ignored.
func parseMessage(uid uint32, r io.Reader) (model.InboundMessage, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return model.InboundMessage{}, &ParseError{UID: uid, Err: err}
	}

	header := mr.Header
	msg := model.InboundMessage{
		ID: strconv.FormatUint(uint64(uid), 10),
	}

	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		msg.Sender = from[0].String()
	}
	if msg.Sender == "" {
		msg.Sender = header.Get("From")
	}
	if subject, err := header.Subject(); err == nil {
		msg.Subject = subject
	}
	if date, err := header.Date(); err == nil {
		msg.Date = date.UTC()
	}
	if id, err := header.MessageID(); err == nil {
		msg.MessageID = id
	}

	var plain, html string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A broken part after usable content is tolerable; with no
			// content at all the message is malformed.
			if plain != "" || html != "" {
				break
			}
			return model.InboundMessage{}, &ParseError{UID: uid, Err: err}
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, err := h.ContentType()
		if err != nil {
			continue
		}
		switch strings.ToLower(ct) {
		case "text/plain":
			if plain == "" {
				b, err := io.ReadAll(p.Body)
				if err == nil {
					plain = string(b)
				}
			}
		case "text/html":
			if html == "" {
				b, err := io.ReadAll(p.Body)
				if err == nil {
					html = string(b)
				}
			}
		}
	}

	switch {
	case plain != "":
		msg.Body = strings.TrimSpace(plain)
	case html != "":
		msg.Body = stripHTMLTags(html)
	default:
		return model.InboundMessage{}, &ParseError{UID: uid, Err: fmt.Errorf("no text content")}
	}
	return msg, nil
}

// stripHTMLTags removes HTML tags and decodes common entities to produce
// readable text for analysis.
func stripHTMLTags(html string) string {
	// Replace block-level elements with newlines.
	for _, tag := range []string{"<br>", "<br/>", "<br />", "</p>", "</div>", "</tr>", "</li>", "</h1>", "</h2>", "</h3>", "</h4>", "</h5>", "</h6>"} {
		html = strings.ReplaceAll(html, tag, "\n")
		html = strings.ReplaceAll(html, strings.ToUpper(tag), "\n")
	}

	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	result := b.String()

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
		"&apos;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	// Collapse multiple blank lines.
	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
