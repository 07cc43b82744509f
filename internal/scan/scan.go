// Package scan classifies attachments and evaluates whole messages
// against the configured keyword.
package scan

import (
	"strings"

	"go.uber.org/zap"

	"github.com/rvashist/mailwatch/internal/extract"
	"github.com/rvashist/mailwatch/internal/types"
)

// Classify extracts one attachment and tests the keyword against the
// extracted text with a case-insensitive substring search. Unsupported
// encodings classify as not matched. A decode failure also classifies as
// not matched and is returned alongside so the caller can log it; it
// never aborts sibling attachments.
func Classify(att types.Attachment, keyword string) (types.AttachmentMatch, error) {
	match := types.AttachmentMatch{Filename: att.Filename}

	res := extract.Extract(att)
	switch res.Kind {
	case extract.KindText:
		match.Matched = strings.Contains(strings.ToLower(res.Text), strings.ToLower(keyword))
		return match, nil
	case extract.KindDecodeError:
		return match, res.Err
	default:
		return match, nil
	}
}

// Evaluator evaluates messages against a single keyword.
type Evaluator struct {
	keyword string
	log     *zap.Logger
}

// NewEvaluator returns an Evaluator for the given keyword.
func NewEvaluator(keyword string, log *zap.Logger) *Evaluator {
	return &Evaluator{keyword: keyword, log: log}
}

// Evaluate classifies every attachment of a message independently and
// returns a MatchRecord when at least one attachment matched, nil
// otherwise. A message with no attachments never invokes an extractor.
func (e *Evaluator) Evaluate(msg types.Message) *types.MatchRecord {
	if len(msg.Attachments) == 0 {
		return nil
	}

	var matched []string
	for _, att := range msg.Attachments {
		m, err := Classify(att, e.keyword)
		if err != nil {
			e.log.Warn("attachment could not be decoded",
				zap.String("message_id", msg.ID),
				zap.String("filename", att.Filename),
				zap.Error(err))
			continue
		}
		if m.Matched {
			matched = append(matched, m.Filename)
		}
	}

	if len(matched) == 0 {
		return nil
	}
	return &types.MatchRecord{
		MessageID:        msg.ID,
		Sender:           msg.Sender,
		Subject:          msg.Subject,
		ReceivedAt:       msg.ReceivedAt,
		BodyPreview:      msg.BodyPreview,
		MatchedFilenames: matched,
	}
}
