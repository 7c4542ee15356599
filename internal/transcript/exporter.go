// Package transcript renders a channel's full message history as plain text.
package transcript

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// EmptyPlaceholder is the artifact body for a channel without messages.
const EmptyPlaceholder = "No messages."

// Artifact is a rendered transcript.
type Artifact struct {
	FileName string
	Body     []byte
	Messages int
}

// File returns the artifact as an uploadable attachment.
func (a Artifact) File() domain.File {
	return domain.File{
		Name:        a.FileName,
		ContentType: "text/plain; charset=utf-8",
		Data:        a.Body,
	}
}

// Exporter pages through channel history.
type Exporter struct {
	history  platform.HistoryReader
	pageSize int
}

// NewExporter creates an exporter reading pages of pageSize messages.
// A non-positive pageSize uses the platform maximum.
func NewExporter(history platform.HistoryReader, pageSize int) *Exporter {
	if pageSize <= 0 || pageSize > platform.HistoryPageSize {
		pageSize = platform.HistoryPageSize
	}
	return &Exporter{history: history, pageSize: pageSize}
}

// Export fetches the complete history of channel, oldest first.
func (e *Exporter) Export(ctx context.Context, channel domain.Channel) (Artifact, error) {
	msgs, err := e.fetchAll(ctx, channel.ID)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		FileName: FileName(channel.Name),
		Body:     []byte(Render(msgs)),
		Messages: len(msgs),
	}, nil
}

func (e *Exporter) fetchAll(ctx context.Context, channelID string) ([]domain.Message, error) {
	var (
		all    []domain.Message
		seen   = make(map[string]struct{})
		before string
	)
	for {
		page, err := e.history.Messages(ctx, channelID, before, e.pageSize)
		if err != nil {
			return nil, fmt.Errorf("read history: %w", err)
		}
		added := 0
		for _, m := range page {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			all = append(all, m)
			added++
		}
		if len(page) < e.pageSize || added == 0 {
			break
		}
		before = oldest(page).ID
	}
	sortChronological(all)
	return all, nil
}

// Render formats messages one per line. Messages must already be ordered.
func Render(msgs []domain.Message) string {
	if len(msgs) == 0 {
		return EmptyPlaceholder
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, Line(m))
	}
	return strings.Join(lines, "\n")
}

// Line formats a single message. Newlines in the content are escaped so each
// message stays on one line.
func Line(m domain.Message) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(domain.FormatTimestamp(m.Timestamp))
	b.WriteString("] ")
	b.WriteString(m.Author.Tag())
	b.WriteString(" (")
	b.WriteString(m.Author.ID)
	b.WriteString("): ")
	b.WriteString(escape(m.Content))
	if len(m.Attachments) > 0 {
		b.WriteString(" | Attachments: ")
		b.WriteString(strings.Join(m.Attachments, ", "))
	}
	return b.String()
}

// FileName names the transcript after its channel.
func FileName(channelName string) string {
	return "transcript-" + channelName + ".txt"
}

func escape(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\n", `\n`)
}

// oldest picks the paging cursor by id; the platform pages by id, not by
// timestamp.
func oldest(page []domain.Message) domain.Message {
	first := page[0]
	for _, m := range page[1:] {
		if idLess(m.ID, first.ID) {
			first = m
		}
	}
	return first
}

func sortChronological(msgs []domain.Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return less(msgs[i], msgs[j]) })
}

// less orders by timestamp, then by snowflake id, which grows with time.
func less(a, b domain.Message) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return idLess(a.ID, b.ID)
}

func idLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
