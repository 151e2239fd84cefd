package mailbox

import (
	"context"
	"fmt"
	"strconv"

	"github.com/emersion/go-imap"

	"mailpilot/internal/model"
)

// FetchUnread lists unread messages matching the support filter, parses each
// into an InboundMessage, and returns them in mailbox order (oldest first).
// Messages are fetched with BODY.PEEK so nothing is marked read here; the
// caller confirms a batch via MarkSeen once it has been handed off.
//
// The second return value counts messages skipped by per-message parse
// failures so the caller can account for them.
func (g *Gateway) FetchUnread(ctx context.Context) ([]model.InboundMessage, int, error) {
	c, err := g.dial()
	if err != nil {
		return nil, 0, err
	}
	defer c.Logout()

	uids, err := c.UidSearch(unseenSupportCriteria(supportKeywords))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: search unseen: %v", ErrConnection, err)
	}
	if len(uids) == 0 {
		return nil, 0, nil
	}

	// Newest batchLimit only; UIDs are ascending.
	if len(uids) > g.batchLimit {
		uids = uids[len(uids)-g.batchLimit:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	// Peek keeps the \Seen flag untouched until the batch is confirmed.
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, ch)
	}()

	var msgs []model.InboundMessage
	skipped := 0
	for raw := range ch {
		select {
		case <-ctx.Done():
			return msgs, skipped, ctx.Err()
		default:
		}
		body := raw.GetBody(section)
		if body == nil {
			skipped++
			g.log.Warn("message has no body section", "uid", raw.Uid)
			continue
		}
		msg, err := parseMessage(raw.Uid, body)
		if err != nil {
			skipped++
			g.log.Warn("skipping malformed message", "uid", raw.Uid, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	if err := <-done; err != nil {
		return msgs, skipped, fmt.Errorf("%w: fetch: %v", ErrConnection, err)
	}
	return msgs, skipped, nil
}

// MarkSeen sets \Seen on the given message IDs. Called once a fetched batch
// has been processed so a later fetch returns no duplicates.
func (g *Gateway) MarkSeen(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	seqset := new(imap.SeqSet)
	for _, id := range ids {
		uid, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid message id %q: %w", id, err)
		}
		seqset.AddNum(uint32(uid))
	}

	c, err := g.dial()
	if err != nil {
		return err
	}
	defer c.Logout()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}
	if err := c.UidStore(seqset, item, flags, nil); err != nil {
		return fmt.Errorf("%w: mark seen: %v", ErrConnection, err)
	}
	return nil
}

// Counts returns unread and read totals for messages matching the support
// filter.
func (g *Gateway) Counts(ctx context.Context) (unread, read int, err error) {
	c, err := g.dial()
	if err != nil {
		return 0, 0, err
	}
	defer c.Logout()

	select {
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	default:
	}
	unseen, err := c.UidSearch(unseenSupportCriteria(supportKeywords))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: search unseen: %v", ErrConnection, err)
	}
	all, err := c.UidSearch(supportCriteria(supportKeywords))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: search all: %v", ErrConnection, err)
	}
	return len(unseen), len(all) - len(unseen), nil
}
