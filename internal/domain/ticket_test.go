package domain

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestTicketChannelName(t *testing.T) {
	tests := []struct {
		name   string
		opener Member
		want   string
	}{
		{"legacy discriminator", Member{ID: "42", Username: "Alice", Discriminator: "1234"}, "ticket-alice-1234"},
		{"zero discriminator uses id", Member{ID: "42", Username: "bob", Discriminator: "0"}, "ticket-bob-42"},
		{"no discriminator uses id", Member{ID: "42", Username: "carol"}, "ticket-carol-42"},
		{"spaces become hyphens", Member{ID: "7", Username: "Big Dave"}, "ticket-big-dave-7"},
		{"non ascii lowercased", Member{ID: "7", Username: "ÉLODIE"}, "ticket-élodie-7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TicketChannelName(tt.opener); got != tt.want {
				t.Errorf("TicketChannelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenerTopicRoundTrip(t *testing.T) {
	opener := Member{ID: "123456789", Username: "alice"}
	topic := OpenerTopic(opener)
	if topic != "Ticket opened by alice (opener:123456789)" {
		t.Fatalf("OpenerTopic() = %q", topic)
	}
	claimed := AppendTopicAnnotation(topic, "Claimed by staff (9) at 2024-01-01 00:00:00 UTC", TopicLimit)
	if got := OpenerFromTopic(claimed); got != opener.ID {
		t.Errorf("OpenerFromTopic() = %q, want %q", got, opener.ID)
	}
	if got := OpenerFromTopic("General chat"); got != "" {
		t.Errorf("OpenerFromTopic() on plain topic = %q", got)
	}
}

func TestClaimAnnotation(t *testing.T) {
	at := time.Date(2024, 3, 9, 8, 7, 6, 0, time.FixedZone("CET", 3600))
	got := ClaimAnnotation(Member{ID: "9", Username: "staffer"}, at)
	want := "Claimed by staffer (9) at 2024-03-09 07:07:06 UTC"
	if got != want {
		t.Errorf("ClaimAnnotation() = %q, want %q", got, want)
	}
}

func TestAppendTopicAnnotation(t *testing.T) {
	head := "Ticket opened by alice (opener:1)"

	t.Run("empty topic", func(t *testing.T) {
		if got := AppendTopicAnnotation("", "Claimed by s1", TopicLimit); got != "Claimed by s1" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("appends in order", func(t *testing.T) {
		topic := AppendTopicAnnotation(head, "Claimed by s1", TopicLimit)
		topic = AppendTopicAnnotation(topic, "Claimed by s2", TopicLimit)
		want := head + " | Claimed by s1 | Claimed by s2"
		if topic != want {
			t.Errorf("got %q, want %q", topic, want)
		}
	})

	t.Run("drops oldest annotations and keeps opener", func(t *testing.T) {
		topic := head
		for i := 0; i < 40; i++ {
			topic = AppendTopicAnnotation(topic, "Claimed by someone-with-a-long-name (1234567890) at 2024-01-01 00:00:00 UTC", TopicLimit)
		}
		last := "Claimed by final (1) at 2024-01-02 00:00:00 UTC"
		topic = AppendTopicAnnotation(topic, last, TopicLimit)
		if n := utf8.RuneCountInString(topic); n > TopicLimit {
			t.Fatalf("topic has %d runes", n)
		}
		if !strings.HasPrefix(topic, head) {
			t.Errorf("opener segment lost: %q", topic[:40])
		}
		if !strings.HasSuffix(topic, last) {
			t.Errorf("newest annotation lost")
		}
	})

	t.Run("oversized single note is cut", func(t *testing.T) {
		note := strings.Repeat("é", TopicLimit+10)
		got := AppendTopicAnnotation("", note, TopicLimit)
		if n := utf8.RuneCountInString(got); n != TopicLimit {
			t.Errorf("got %d runes, want %d", n, TopicLimit)
		}
	})
}

func TestMemberTag(t *testing.T) {
	if got := (Member{Username: "a", Discriminator: "0001"}).Tag(); got != "a#0001" {
		t.Errorf("Tag() = %q", got)
	}
	if got := (Member{Username: "a", Discriminator: "0"}).Tag(); got != "a" {
		t.Errorf("Tag() = %q", got)
	}
}
