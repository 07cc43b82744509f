package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rvashist/mailwatch/internal/types"
)

func txt(name, content string) types.Attachment {
	return types.Attachment{Filename: name, MimeType: "text/plain", Data: []byte(content)}
}

func TestClassify_CaseInsensitiveMatch(t *testing.T) {
	tests := []struct {
		name    string
		content string
		keyword string
		want    bool
	}{
		{"exact", "varun", "varun", true},
		{"cased content", "Hi Varun, you are shortlisted", "varun", true},
		{"cased keyword", "hi varun", "VARUN", true},
		{"substring", "xxvarunxx", "varun", true},
		{"absent", "nobody here", "varun", false},
		// Greek alpha instead of latin a: visually similar, distinct rune.
		{"lookalike character", "vαrun", "varun", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Classify(txt("offer.txt", tt.content), tt.keyword)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Matched)
			assert.Equal(t, "offer.txt", m.Filename)
		})
	}
}

func TestClassify_UnsupportedIsNoMatchNoError(t *testing.T) {
	att := types.Attachment{Filename: "photo.xyzzy", MimeType: "application/x-mystery", Data: []byte("varun")}
	m, err := Classify(att, "varun")
	require.NoError(t, err)
	assert.False(t, m.Matched)
}

func TestClassify_DecodeErrorIsNoMatchWithError(t *testing.T) {
	att := types.Attachment{Filename: "broken.txt", MimeType: "text/plain", Data: []byte{'a', 0x00, 'b'}}
	m, err := Classify(att, "varun")
	require.Error(t, err)
	assert.False(t, m.Matched)
}

func TestEvaluate_NoAttachmentsIsNoMatch(t *testing.T) {
	e := NewEvaluator("varun", zap.NewNop())
	msg := types.Message{ID: "m1", Subject: "varun in the subject does not count"}
	assert.Nil(t, e.Evaluate(msg))
}

func TestEvaluate_CollectsMatchedFilenamesInOrder(t *testing.T) {
	e := NewEvaluator("varun", zap.NewNop())
	msg := types.Message{
		ID:          "m1",
		Sender:      "hr@example.com",
		Subject:     "Interview",
		BodyPreview: "see attachments",
		Attachments: []types.Attachment{
			txt("first.txt", "hello varun"),
			txt("second.txt", "nothing here"),
			txt("third.txt", "VARUN again"),
		},
	}
	rec := e.Evaluate(msg)
	require.NotNil(t, rec)
	assert.Equal(t, "m1", rec.MessageID)
	assert.Equal(t, []string{"first.txt", "third.txt"}, rec.MatchedFilenames)
}

func TestEvaluate_DecodeErrorDoesNotAbortSiblings(t *testing.T) {
	e := NewEvaluator("varun", zap.NewNop())
	msg := types.Message{
		ID: "m2",
		Attachments: []types.Attachment{
			{Filename: "broken.pdf", MimeType: "application/pdf", Data: []byte("not a pdf")},
			txt("offer.txt", "Hi Varun, you are shortlisted"),
		},
	}
	rec := e.Evaluate(msg)
	require.NotNil(t, rec)
	assert.Equal(t, []string{"offer.txt"}, rec.MatchedFilenames)
}

func TestEvaluate_AllUnreadableIsNoMatch(t *testing.T) {
	e := NewEvaluator("varun", zap.NewNop())
	msg := types.Message{
		ID: "m3",
		Attachments: []types.Attachment{
			{Filename: "broken.pdf", MimeType: "application/pdf", Data: []byte("not a pdf")},
		},
	}
	assert.Nil(t, e.Evaluate(msg))
}
