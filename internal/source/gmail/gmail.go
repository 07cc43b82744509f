// Package gmail adapts the Gmail REST API to the engine's Source
// contract: messages with attachments in a date window, raw attachment
// bytes included.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	gm "google.golang.org/api/gmail/v1"

	"github.com/rvashist/mailwatch/internal/auth"
	"github.com/rvashist/mailwatch/internal/source"
	"github.com/rvashist/mailwatch/internal/types"
)

const pageSize = 100

// Client fetches messages for one Gmail account.
type Client struct {
	svc *gm.Service
	log *zap.Logger
}

// New authenticates against Gmail with the given credentials.json and
// returns a ready client.
func New(ctx context.Context, credentialsPath string, log *zap.Logger) (*Client, error) {
	svc, err := auth.LoadGmailService(ctx, credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	return &Client{svc: svc, log: log}, nil
}

// FetchMessages lists every message with an attachment received since
// the given time and returns them with attachment bytes downloaded.
// List/paginate failures abort the fetch; a single message that fails to
// load is skipped with a warning so one bad message cannot starve the
// cycle.
func (c *Client) FetchMessages(ctx context.Context, since time.Time) ([]types.Message, error) {
	query := fmt.Sprintf("has:attachment after:%s", since.Format("2006/01/02"))

	var ids []string
	pageToken := ""
	for {
		call := c.svc.Users.Messages.List("me").Q(query).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, classify(err)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	messages := make([]types.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := c.fetchOne(ctx, id)
		if err != nil {
			if fe, ok := source.AsFetchError(err); ok && fe.Kind != source.KindNetwork {
				return nil, err
			}
			c.log.Warn("skipping unreadable message", zap.String("message_id", id), zap.Error(err))
			continue
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

func (c *Client) fetchOne(ctx context.Context, id string) (*types.Message, error) {
	msg, err := c.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}

	headers := headerMap(msg.Payload.Headers)
	out := &types.Message{
		ID:          msg.Id,
		Sender:      headers["From"],
		Subject:     defaultStr(headers["Subject"], "(no subject)"),
		ReceivedAt:  receivedAt(msg, headers["Date"]),
		BodyPreview: extractBody(msg.Payload),
	}

	for _, info := range attachmentParts(msg.Payload) {
		data, err := c.downloadAttachment(ctx, id, info.attachmentID)
		if err != nil {
			c.log.Warn("skipping undownloadable attachment",
				zap.String("message_id", id),
				zap.String("filename", info.filename),
				zap.Error(err))
			continue
		}
		out.Attachments = append(out.Attachments, types.Attachment{
			Filename: info.filename,
			MimeType: info.mimeType,
			Data:     data,
		})
	}
	return out, nil
}

// downloadAttachment fetches one attachment body by its id.
func (c *Client) downloadAttachment(ctx context.Context, msgID, attID string) ([]byte, error) {
	att, err := c.svc.Users.Messages.Attachments.Get("me", msgID, attID).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}
	data, err := decodeBase64URL(att.Data)
	if err != nil {
		return nil, fmt.Errorf("decode attachment %s: %w", attID, err)
	}
	return data, nil
}

// classify maps Gmail API failures onto the engine's retryable kinds.
func classify(err error) error {
	if apiErr, ok := err.(*googleapi.Error); ok {
		switch apiErr.Code {
		case 401, 403:
			return source.NewFetchError(source.KindAuth, err)
		case 429:
			return source.NewFetchError(source.KindRateLimited, err)
		}
	}
	return source.NewFetchError(source.KindNetwork, err)
}

type attachmentInfo struct {
	filename     string
	mimeType     string
	attachmentID string
}

// attachmentParts walks the MIME tree collecting named parts that carry
// an attachment id, preserving their order in the message.
func attachmentParts(payload *gm.MessagePart) []attachmentInfo {
	var out []attachmentInfo

	var walk func(parts []*gm.MessagePart)
	walk = func(parts []*gm.MessagePart) {
		for _, part := range parts {
			if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
				out = append(out, attachmentInfo{
					filename:     part.Filename,
					mimeType:     part.MimeType,
					attachmentID: part.Body.AttachmentId,
				})
			}
			if len(part.Parts) > 0 {
				walk(part.Parts)
			}
		}
	}

	if payload != nil && len(payload.Parts) > 0 {
		walk(payload.Parts)
	}
	return out
}

// extractBody gets a plain text preview from a message payload.
// Handles multipart messages recursively, preferring text/plain; HTML
// bodies are converted to readable text as a fallback.
func extractBody(payload *gm.MessagePart) string {
	if payload == nil {
		return ""
	}

	if payload.Body != nil && payload.Body.Data != "" && !strings.HasPrefix(payload.MimeType, "multipart/") {
		if decoded, err := decodeBase64URL(payload.Body.Data); err == nil {
			return asPreview(string(decoded), payload.MimeType)
		}
	}

	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			if decoded, err := decodeBase64URL(part.Body.Data); err == nil {
				return string(decoded)
			}
		}
		if len(part.Parts) > 0 {
			if body := extractBody(part); body != "" {
				return body
			}
		}
	}

	// Second pass: fall back to HTML.
	for _, part := range payload.Parts {
		if part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" {
			if decoded, err := decodeBase64URL(part.Body.Data); err == nil {
				return asPreview(string(decoded), part.MimeType)
			}
		}
	}

	return ""
}

// asPreview renders an HTML body as readable text; plain bodies pass
// through unchanged.
func asPreview(body, mimeType string) string {
	if !strings.HasPrefix(mimeType, "text/html") {
		return body
	}
	text, err := htmltomarkdown.ConvertString(body)
	if err != nil {
		return body
	}
	return text
}

// receivedAt prefers Gmail's internal timestamp over the Date header.
func receivedAt(msg *gm.Message, dateHeader string) time.Time {
	if msg.InternalDate > 0 {
		return time.UnixMilli(msg.InternalDate).UTC()
	}
	if t, err := mail.ParseDate(dateHeader); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// headerMap converts Gmail API headers into a simple key-value map.
func headerMap(headers []*gm.MessagePartHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Name] = h.Value
	}
	return m
}

// decodeBase64URL decodes Gmail's base64url-encoded content.
func decodeBase64URL(data string) ([]byte, error) {
	// Gmail uses URL-safe base64 without padding.
	data = strings.ReplaceAll(data, "-", "+")
	data = strings.ReplaceAll(data, "_", "/")
	switch len(data) % 4 {
	case 2:
		data += "=="
	case 3:
		data += "="
	}
	return base64.StdEncoding.DecodeString(data)
}

func defaultStr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
