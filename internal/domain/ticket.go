package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TopicLimit is the maximum channel topic length accepted by the platform.
const TopicLimit = 1024

// TimestampLayout is used for claim annotations and transcripts.
const TimestampLayout = "2006-01-02 15:04:05 UTC"

const topicSeparator = " | "

// Reasons offered by the open-ticket menu.
var Reasons = []string{
	"Billing / Payment",
	"Technical Issue",
	"Account / Access",
	"Report a User",
	"General Question",
}

// Priorities offered by the open-ticket menu.
var Priorities = []string{
	"Low",
	"Normal",
	"High",
	"Urgent",
}

var openerMarker = regexp.MustCompile(`\(opener:(\d+)\)`)

var lower = cases.Lower(language.Und)

// IsPresetReason reports whether reason is one of Reasons.
func IsPresetReason(reason string) bool {
	return contains(Reasons, reason)
}

// IsPresetPriority reports whether priority is one of Priorities.
func IsPresetPriority(priority string) bool {
	return contains(Priorities, priority)
}

// TicketChannelName derives the channel name for an opener. The suffix keeps
// names of users sharing a username apart.
func TicketChannelName(opener Member) string {
	name := strings.ReplaceAll(lower.String(opener.Username), " ", "-")
	suffix := opener.Discriminator
	if suffix == "" || suffix == "0" {
		suffix = opener.ID
	}
	return "ticket-" + name + "-" + suffix
}

// OpenerTopic is the initial topic of a ticket channel. It carries the opener
// id so the ticket owner can be recovered from the channel alone.
func OpenerTopic(opener Member) string {
	return "Ticket opened by " + opener.Tag() + " (opener:" + opener.ID + ")"
}

// OpenerFromTopic extracts the opener id written by OpenerTopic.
func OpenerFromTopic(topic string) string {
	m := openerMarker.FindStringSubmatch(topic)
	if m == nil {
		return ""
	}
	return m[1]
}

// ClaimAnnotation records who claimed a ticket and when.
func ClaimAnnotation(claimer Member, at time.Time) string {
	return "Claimed by " + claimer.Tag() + " (" + claimer.ID + ") at " + FormatTimestamp(at)
}

// FormatTimestamp renders t in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// AppendTopicAnnotation appends note to topic and fits the result into limit
// runes. The oldest annotations are dropped first; the opener segment is kept.
func AppendTopicAnnotation(topic, note string, limit int) string {
	segments := make([]string, 0, 4)
	for _, seg := range strings.Split(topic, topicSeparator) {
		if seg = strings.TrimSpace(seg); seg != "" {
			segments = append(segments, seg)
		}
	}
	segments = append(segments, note)

	keepHead := len(segments) > 1 && OpenerFromTopic(segments[0]) != ""
	for utf8.RuneCountInString(strings.Join(segments, topicSeparator)) > limit {
		first := 0
		if keepHead {
			first = 1
		}
		if len(segments)-first <= 1 {
			break
		}
		segments = append(segments[:first], segments[first+1:]...)
	}

	out := strings.Join(segments, topicSeparator)
	if utf8.RuneCountInString(out) > limit {
		runes := []rune(out)
		out = string(runes[len(runes)-limit:])
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
