// Package imap adapts a generic IMAP mailbox to the engine's Source
// contract for accounts that are not on Gmail.
package imap

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	// Register charset decoders (windows-1252, iso-8859-*, koi8-r, etc.)
	_ "github.com/emersion/go-message/charset"

	"github.com/rvashist/mailwatch/internal/source"
	"github.com/rvashist/mailwatch/internal/types"
)

// Client fetches messages from one IMAP mailbox.
type Client struct {
	host     string
	port     string
	username string
	password string
	mailbox  string
	log      *zap.Logger
}

// New returns an IMAP client configuration. mailbox defaults to INBOX.
func New(host, port, username, password, mailbox string, log *zap.Logger) *Client {
	if mailbox == "" {
		mailbox = "INBOX"
	}
	return &Client{
		host:     host,
		port:     port,
		username: username,
		password: password,
		mailbox:  mailbox,
		log:      log,
	}
}

// connect dials the server over TLS and authenticates. Every blocking
// step is bounded by ctx: the dial and handshake go through a
// context-aware dialer, and once connected an expiring ctx closes the
// connection, which fails any command still waiting on the server. The
// returned cleanup must be called when the session is done.
func (c *Client) connect(ctx context.Context) (*imapclient.Client, func(), error) {
	addr := net.JoinHostPort(c.host, c.port)

	dialer := tls.Dialer{Config: &tls.Config{ServerName: c.host}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, source.NewFetchError(source.KindNetwork, fmt.Errorf("connect to %s: %w", addr, err))
	}
	client := imapclient.New(conn, nil)

	stopClose := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})
	cleanup := func() {
		stopClose()
		if ctx.Err() == nil {
			_ = client.Logout().Wait()
		}
		_ = client.Close()
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		cleanup()
		if ctx.Err() != nil {
			return nil, nil, source.NewFetchError(source.KindNetwork, fmt.Errorf("login %s: %w", c.username, ctx.Err()))
		}
		return nil, nil, source.NewFetchError(source.KindAuth, fmt.Errorf("login %s: %w", c.username, err))
	}
	return client, cleanup, nil
}

// FetchMessages searches the mailbox for messages received since the
// given time and returns them fully parsed, attachment bytes included.
func (c *Client) FetchMessages(ctx context.Context, since time.Time) ([]types.Message, error) {
	client, cleanup, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if _, err := client.Select(c.mailbox, nil).Wait(); err != nil {
		return nil, source.NewFetchError(source.KindNetwork, fmt.Errorf("select %s: %w", c.mailbox, err))
	}

	searchData, err := client.UIDSearch(&imap.SearchCriteria{Since: since}, nil).Wait()
	if err != nil {
		return nil, source.NewFetchError(source.KindNetwork, fmt.Errorf("search since %s: %w", since.Format("2006-01-02"), err))
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var messages []types.Message
	for {
		if err := ctx.Err(); err != nil {
			return nil, source.NewFetchError(source.KindNetwork, fmt.Errorf("fetch: %w", err))
		}
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			c.log.Warn("skipping uncollectable message", zap.Error(err))
			continue
		}

		out := types.Message{
			ID:      messageID(buf),
			Subject: "(no subject)",
		}
		if buf.Envelope != nil {
			out.Sender = formatAddress(buf.Envelope.From)
			out.ReceivedAt = buf.Envelope.Date.UTC()
			if buf.Envelope.Subject != "" {
				out.Subject = buf.Envelope.Subject
			}
		}

		if raw := buf.FindBodySection(bodySection); raw != nil {
			preview, atts := parseBody(raw)
			out.BodyPreview = preview
			out.Attachments = atts
		}
		messages = append(messages, out)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, source.NewFetchError(source.KindNetwork, fmt.Errorf("fetch: %w", err))
	}
	return messages, nil
}

// messageID prefers the RFC 5322 Message-ID so dedup state survives
// mailbox renumbering; the UID is the fallback.
func messageID(buf *imapclient.FetchMessageBuffer) string {
	if buf.Envelope != nil && buf.Envelope.MessageID != "" {
		return buf.Envelope.MessageID
	}
	return fmt.Sprintf("uid:%d", buf.UID)
}

// parseBody walks a raw RFC 2822 body with go-message, collecting a
// text preview from inline parts and raw bytes for every attachment.
func parseBody(raw []byte) (preview string, atts []types.Attachment) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return "", nil
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			if preview != "" {
				continue
			}
			contentType, _, _ := h.ContentType()
			if strings.HasPrefix(contentType, "text/") {
				if body, err := io.ReadAll(part.Body); err == nil {
					preview = string(body)
				}
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			if filename == "" {
				continue
			}
			contentType, _, _ := h.ContentType()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			atts = append(atts, types.Attachment{
				Filename: filename,
				MimeType: contentType,
				Data:     data,
			})
		}
	}
	return preview, atts
}

// formatAddress renders the first sender address as "Name <box@host>".
func formatAddress(addrs []imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	a := addrs[0]
	email := a.Mailbox + "@" + a.Host
	if a.Name != "" {
		return fmt.Sprintf("%s <%s>", a.Name, email)
	}
	return email
}
