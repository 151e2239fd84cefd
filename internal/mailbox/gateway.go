// Package mailbox is the mail gateway: it fetches unread support email over
// IMAP, marks batches as seen once they have been handed off, and submits
// approved replies over SMTP. Each operation opens its own authenticated
// session and closes it before returning.
package mailbox

import (
	"fmt"
	"log/slog"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// supportKeywords is the subject filter the inbox is searched with. A message
// qualifies when its Subject contains any of these.
var supportKeywords = []string{"Support", "Query", "Request", "Help"}

// Options carries everything the gateway needs; credentials are an
// app-scoped password, not the account password.
type Options struct {
	IMAPAddr   string
	SMTPAddr   string
	Username   string
	Password   string
	BatchLimit int
	Logger     *slog.Logger
}

// Gateway talks to the mailbox. Safe for sequential use; callers serialize.
type Gateway struct {
	imapAddr   string
	smtpAddr   string
	username   string
	password   string
	batchLimit int
	log        *slog.Logger
}

func NewGateway(opts Options) *Gateway {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	limit := opts.BatchLimit
	if limit <= 0 {
		limit = 20
	}
	return &Gateway{
		imapAddr:   opts.IMAPAddr,
		smtpAddr:   opts.SMTPAddr,
		username:   opts.Username,
		password:   opts.Password,
		batchLimit: limit,
		log:        log,
	}
}

// dial opens an IMAPS session, authenticates, and selects INBOX. The caller
// must Logout the returned client.
func (g *Gateway) dial() (*client.Client, error) {
	c, err := client.DialTLS(g.imapAddr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnection, g.imapAddr, err)
	}
	if err := c.Login(g.username, g.password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("%w: login: %v", ErrConnection, err)
	}
	if _, err := c.Select("INBOX", false); err != nil {
		c.Logout()
		return nil, fmt.Errorf("%w: select INBOX: %v", ErrConnection, err)
	}
	return c, nil
}

// subjectCriteria matches messages whose Subject contains kw.
func subjectCriteria(kw string) *imap.SearchCriteria {
	crit := imap.NewSearchCriteria()
	crit.Header.Add("Subject", kw)
	return crit
}

// orCriteria combines two criteria into a single OR node.
func orCriteria(a, b *imap.SearchCriteria) *imap.SearchCriteria {
	return &imap.SearchCriteria{Or: [][2]*imap.SearchCriteria{{a, b}}}
}

// supportCriteria folds the keyword list into nested OR nodes, mirroring the
// IMAP `OR (OR ...) SUBJECT "..."` shape.
func supportCriteria(keywords []string) *imap.SearchCriteria {
	if len(keywords) == 0 {
		return imap.NewSearchCriteria()
	}
	crit := subjectCriteria(keywords[0])
	for _, kw := range keywords[1:] {
		crit = orCriteria(crit, subjectCriteria(kw))
	}
	return crit
}

// unseenSupportCriteria is supportCriteria restricted to unread messages.
func unseenSupportCriteria(keywords []string) *imap.SearchCriteria {
	crit := supportCriteria(keywords)
	crit.WithoutFlags = append(crit.WithoutFlags, imap.SeenFlag)
	return crit
}
