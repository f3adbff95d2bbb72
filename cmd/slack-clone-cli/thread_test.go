package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cristhian-fs/slack-clone/internal/models"
	"github.com/cristhian-fs/slack-clone/internal/thread"
)

var brt = time.FixedZone("BRT", -3*60*60)

func reply(id, memberID int64, name string, at time.Time, text string) models.MessageWithAuthor {
	root := int64(1)
	return models.MessageWithAuthor{
		Message: models.Message{
			ID:              id,
			ChannelID:       10,
			ParentMessageID: &root,
			MemberID:        memberID,
			Body:            delta(text),
			CreatedAt:       at,
		},
		AuthorName: name,
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"text inserts", `{"ops":[{"insert":"hello "},{"insert":"world\n"}]}`, "hello world\n"},
		{"embeds skipped", `{"ops":[{"insert":{"image":"x.png"}},{"insert":"caption\n"}]}`, "caption\n"},
		{"not a document", "plain body", "plain body"},
		{"json without ops", `{"text":"hi"}`, `{"text":"hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, plainText(tt.body))
		})
	}
}

func TestRenderThread(t *testing.T) {
	now := time.Date(2026, time.October, 19, 15, 0, 0, 0, brt)
	root := reply(1, 1, "Alice", now.Add(-30*time.Hour), "Welcome!")
	root.ParentMessageID = nil
	root.Thread = &models.ThreadSummary{Count: 3, LastName: "Bob", LastReplyAt: now.Add(-time.Hour)}

	results := []models.MessageWithAuthor{
		reply(4, 2, "Bob", now.Add(-time.Hour), "All quiet."),
		reply(3, 2, "Bob", now.Add(-26*time.Hour+2*time.Minute), "Second line"),
		reply(2, 2, "Bob", now.Add(-26*time.Hour), "Hi!"),
	}
	results[0].Reactions = []models.ReactionGroup{{Emoji: "👍", Count: 2}}

	v := thread.Build(thread.Input{
		Threaded: true,
		Root:     &root,
		Snapshot: thread.Snapshot{Results: results, Status: thread.StatusExhausted},
		Location: brt,
	})

	var buf bytes.Buffer
	renderThread(&buf, v, now, brt)
	out := buf.String()

	assert.Contains(t, out, "Alice  09:00 (1 day ago)\n  Welcome!\n  3 replies, last 1 hour ago\n")
	today := bytes.Index(buf.Bytes(), []byte("──── Today ────"))
	yesterday := bytes.Index(buf.Bytes(), []byte("──── Yesterday ────"))
	assert.True(t, today >= 0 && yesterday > today, "newest day first:\n%s", out)

	// The second message of yesterday is compact: no repeated header.
	assert.Contains(t, out, "Bob  13:00 (1 day ago)\n  Hi!\n  Second line\n")
	assert.Contains(t, out, "Bob  14:00 (1 hour ago)\n  All quiet.\n  [👍 2]\n")
}

func TestRenderThread_NoReplies(t *testing.T) {
	now := time.Date(2026, time.October, 19, 15, 0, 0, 0, brt)
	root := reply(1, 1, "Alice", now.Add(-time.Minute), "Anyone?")
	root.ParentMessageID = nil

	v := thread.Build(thread.Input{Threaded: true, Root: &root, Snapshot: thread.Snapshot{Status: thread.StatusExhausted}, Location: brt})

	var buf bytes.Buffer
	renderThread(&buf, v, now, brt)
	assert.Contains(t, buf.String(), "Anyone?")
	assert.Contains(t, buf.String(), "(no replies)")
	assert.NotContains(t, buf.String(), "replies, last")
}

func TestRenderThread_EmptyChannel(t *testing.T) {
	now := time.Date(2026, time.October, 19, 15, 0, 0, 0, brt)
	v := thread.Build(thread.Input{Snapshot: thread.Snapshot{Status: thread.StatusExhausted}, Location: brt})

	var buf bytes.Buffer
	renderThread(&buf, v, now, brt)
	assert.Equal(t, "  (no messages)\n", buf.String())
}

func TestPluralReplies(t *testing.T) {
	assert.Equal(t, "1 reply", pluralReplies(1))
	assert.Equal(t, "1,200 replies", pluralReplies(1200))
}
