package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/testutil"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

func TestStaffClaimAndCloseScenario(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ch := f.openTicket(t, opener, "Report a User", "Urgent")

	// A stranger can neither close nor export.
	err := f.panel.Close(ctx, click(stranger, PanelCustomID(ActionClose, opener.ID), ch.ID), &testutil.RecordingResponder{})
	requireCode(t, err, errorutil.CodeAuthorizationDenied, "You are not allowed to close this ticket.")
	if !f.platform.HasChannel(ch.ID) {
		t.Fatal("stranger closed the ticket")
	}
	tr := &testutil.RecordingResponder{}
	err = f.panel.Transcript(ctx, click(stranger, PanelCustomID(ActionTranscript, opener.ID), ch.ID), tr)
	requireCode(t, err, errorutil.CodeAuthorizationDenied, "You are not allowed to get a transcript.")
	if tr.Deferred {
		t.Error("rejected transcript must not be acknowledged")
	}

	r1 := &testutil.RecordingResponder{}
	if err := f.panel.Claim(ctx, click(staffS1, PanelCustomID(ActionClaim, opener.ID), ch.ID), r1); err != nil {
		t.Fatalf("S1 claim: %v", err)
	}
	if !r1.Deferred || r1.DeferredEphem {
		t.Error("claim must be acknowledged publicly before the topic edit")
	}
	if len(r1.Followups) != 1 || r1.Followups[0].Content != "Ticket claimed by <@300>." || r1.Followups[0].Ephemeral {
		t.Errorf("claim announcement = %+v", r1.Followups)
	}
	r2 := &testutil.RecordingResponder{}
	if err := f.panel.Claim(ctx, click(staffS2, PanelCustomID(ActionClaim, opener.ID), ch.ID), r2); err != nil {
		t.Fatalf("S2 claim: %v", err)
	}

	topic := f.platform.Topic(ch.ID)
	first := strings.Index(topic, "Claimed by sam (300) at 2024-06-01 09:30:00 UTC")
	second := strings.Index(topic, "Claimed by sue (301) at 2024-06-01 09:30:00 UTC")
	if !strings.HasPrefix(topic, "Ticket opened by alice (opener:100)") || first < 0 || second < first {
		t.Errorf("topic = %q", topic)
	}
	if f.eventCount(events.EventTicketClaimed) != 2 {
		t.Error("expected two ticket_claimed events")
	}

	// The opener is not staff, so /close is refused.
	err = f.panel.CloseCommand(ctx, command(opener, "close", ch.ID), &testutil.RecordingResponder{})
	requireCode(t, err, errorutil.CodeAuthorizationDenied, "Only staff can use this command.")

	rc := &testutil.RecordingResponder{}
	if err := f.panel.CloseCommand(ctx, command(staffS2, "close", ch.ID), rc); err != nil {
		t.Fatalf("S2 /close: %v", err)
	}
	if rc.Responses[0].Content != "Closing in 5 seconds…" {
		t.Errorf("close ack = %q", rc.Responses[0].Content)
	}
	if f.platform.HasChannel(ch.ID) {
		t.Error("channel survived /close")
	}
}

func TestStaffCanManageAnyTicket(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ch := f.openTicket(t, opener, "Technical Issue", "High")

	r := &testutil.RecordingResponder{}
	if err := f.panel.AddUser(ctx, click(staffS1, PanelCustomID(ActionAddUser, opener.ID), ch.ID), r); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if err := f.participants.Select(ctx, click(staffS1, r.Responses[0].Rows[0][0].CustomID, ch.ID, guest.ID), r); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, ok := f.platform.Overwrite(ch.ID, guest.ID); !ok {
		t.Error("staff could not add a participant")
	}
	if err := f.panel.Close(ctx, click(staffS1, PanelCustomID(ActionClose, opener.ID), ch.ID), r); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRestoredPanelFallsBackToTopic(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	ch := domain.Channel{ID: "60", Name: "ticket-alice-100", Topic: domain.OpenerTopic(opener), Kind: domain.ChannelKindText}
	f.platform.AddChannel(ch)

	// Panels without a bound opener resolve it from the topic.
	err := f.panel.Close(ctx, click(stranger, "ticket:close", ch.ID), &testutil.RecordingResponder{})
	requireCode(t, err, errorutil.CodeAuthorizationDenied, "")
	if err := f.panel.Close(ctx, click(opener, "ticket:close:0", ch.ID), &testutil.RecordingResponder{}); err != nil {
		t.Fatalf("opener close via restored panel: %v", err)
	}
	if f.platform.HasChannel(ch.ID) {
		t.Error("channel not deleted")
	}
}

func TestUnknownOpenerOnlyStaff(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ch := domain.Channel{ID: "61", Name: "legacy", Kind: domain.ChannelKindText}
	f.platform.AddChannel(ch)

	err := f.panel.Transcript(ctx, click(opener, "ticket:transcript", ch.ID), &testutil.RecordingResponder{})
	requireCode(t, err, errorutil.CodeAuthorizationDenied, "")
	if err := f.panel.Transcript(ctx, click(staffS1, "ticket:transcript", ch.ID), &testutil.RecordingResponder{}); err != nil {
		t.Fatalf("staff transcript: %v", err)
	}
}

func TestConcurrentCloseSecondFails(t *testing.T) {
	f := newFixture(t, false)
	ch := f.openTicket(t, opener, "Technical Issue", "High")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := click(opener, PanelCustomID(ActionClose, opener.ID), ch.ID)
			errs[i] = f.panel.Close(context.Background(), in, &testutil.RecordingResponder{})
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		failures++
		requireCode(t, err, errorutil.CodeInvalidContext, "This ticket channel no longer exists.")
	}
	if failures != 1 {
		t.Errorf("got %d failures, want exactly 1 (%v)", failures, errs)
	}
	if f.platform.HasChannel(ch.ID) {
		t.Error("channel survived")
	}
}

func TestCloseForbiddenKeepsChannel(t *testing.T) {
	f := newFixture(t, false)
	ch := f.openTicket(t, opener, "Technical Issue", "High")
	f.platform.Forbid(testutil.OpDeleteChannel)

	r := &testutil.RecordingResponder{}
	err := f.panel.Close(context.Background(), click(opener, PanelCustomID(ActionClose, opener.ID), ch.ID), r)
	requireCode(t, err, errorutil.CodePlatformPermissionDenied, "I lack permission to delete this channel.")
	if len(r.Responses) != 1 {
		t.Error("close must be acknowledged before deleting")
	}
	if !f.platform.HasChannel(ch.ID) {
		t.Error("channel deleted despite forbidden response")
	}
}

func TestCloseCommandContext(t *testing.T) {
	t.Run("outside a ticket channel", func(t *testing.T) {
		f := newFixture(t, true)
		err := f.panel.CloseCommand(context.Background(), command(staffS1, "close", lobbyID), &testutil.RecordingResponder{})
		requireCode(t, err, errorutil.CodeInvalidContext, "Use this inside a ticket channel.")
	})

	t.Run("in a direct message", func(t *testing.T) {
		f := newFixture(t, true)
		in := command(staffS1, "close", "dm")
		in.GuildID = ""
		err := f.panel.CloseCommand(context.Background(), in, &testutil.RecordingResponder{})
		requireCode(t, err, errorutil.CodeInvalidContext, "")
	})

	t.Run("without a staff role", func(t *testing.T) {
		f := newFixture(t, false)
		ch := f.openTicket(t, opener, "Technical Issue", "High")
		err := f.panel.CloseCommand(context.Background(), command(opener, "close", ch.ID), &testutil.RecordingResponder{})
		requireCode(t, err, errorutil.CodeConfigurationMissing, "")
		if !f.platform.HasChannel(ch.ID) {
			t.Error("channel deleted")
		}
	})

	t.Run("ticket recognised by category", func(t *testing.T) {
		f := newFixture(t, true)
		f.platform.AddChannel(domain.Channel{ID: "70", Name: "Tickets", Kind: domain.ChannelKindCategory})
		f.platform.AddChannel(domain.Channel{ID: "71", Name: "old-ticket", ParentID: "70", Kind: domain.ChannelKindText})
		if err := f.panel.CloseCommand(context.Background(), command(staffS1, "close", "71"), &testutil.RecordingResponder{}); err != nil {
			t.Fatalf("CloseCommand: %v", err)
		}
		if f.platform.HasChannel("71") {
			t.Error("channel survived")
		}
	})
}

func TestCloseRejectsNonTextChannel(t *testing.T) {
	f := newFixture(t, false)
	f.platform.AddChannel(domain.Channel{ID: "80", Name: "thread", Topic: domain.OpenerTopic(opener), Kind: domain.ChannelKindThread})
	err := f.panel.Close(context.Background(), click(opener, PanelCustomID(ActionClose, opener.ID), "80"), &testutil.RecordingResponder{})
	requireCode(t, err, errorutil.CodeInvalidContext, "Invalid channel.")
}

func TestTranscriptContent(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	ch := domain.Channel{ID: "90", Name: "ticket-alice-100", Topic: domain.OpenerTopic(opener), Kind: domain.ChannelKindText}
	f.platform.AddChannel(ch)

	r := &testutil.RecordingResponder{}
	if err := f.panel.Transcript(ctx, click(opener, PanelCustomID(ActionTranscript, opener.ID), ch.ID), r); err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if !r.Deferred || !r.DeferredEphem {
		t.Error("transcript must be deferred ephemerally")
	}
	file := r.Followups[0].Files[0]
	if string(file.Data) != "No messages." {
		t.Errorf("empty transcript body = %q", file.Data)
	}
	if r.Followups[0].Content != "Here is the transcript." || !r.Followups[0].Ephemeral {
		t.Errorf("follow-up = %+v", r.Followups[0])
	}
	if f.eventCount(events.EventTranscriptExported) != 1 {
		t.Error("transcript_exported not published")
	}
}

func TestClaimKeepsTopicWithinLimit(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	long := domain.OpenerTopic(opener) + " | " + strings.Repeat("x", domain.TopicLimit-60)
	f.platform.AddChannel(domain.Channel{ID: "95", Name: "ticket-alice-100", Topic: long, Kind: domain.ChannelKindText})

	for _, m := range []domain.Member{staffS1, staffS2, staffS1} {
		if err := f.panel.Claim(ctx, click(m, PanelCustomID(ActionClaim, opener.ID), "95"), &testutil.RecordingResponder{}); err != nil {
			t.Fatalf("Claim: %v", err)
		}
	}
	topic := f.platform.Topic("95")
	if n := utf8.RuneCountInString(topic); n > domain.TopicLimit {
		t.Fatalf("topic has %d runes", n)
	}
	if domain.OpenerFromTopic(topic) != opener.ID {
		t.Error("opener marker dropped")
	}
	if !strings.HasSuffix(topic, "Claimed by sam (300) at 2024-06-01 09:30:00 UTC") {
		t.Errorf("latest claim missing: %q", topic)
	}
	claims := f.logs.FilterMessage(string(events.EventTicketClaimed)).All()
	if len(claims) != 3 {
		t.Fatalf("got %d claim events", len(claims))
	}
	payload, ok := claims[0].ContextMap()["payload"].(events.TicketClaimedPayload)
	if !ok || !payload.Truncated {
		t.Errorf("first claim should report truncation: %+v", claims[0].ContextMap()["payload"])
	}
}

func TestClaimForbidden(t *testing.T) {
	f := newFixture(t, true)
	ch := f.openTicket(t, opener, "Technical Issue", "High")
	f.platform.Forbid(testutil.OpSetTopic)

	r := &testutil.RecordingResponder{}
	err := f.panel.Claim(context.Background(), click(staffS1, PanelCustomID(ActionClaim, opener.ID), ch.ID), r)
	requireCode(t, err, errorutil.CodePlatformPermissionDenied, "I lack permission to edit this channel's topic.")
	if len(r.Followups) != 0 {
		t.Error("no announcement expected after a failed claim")
	}
}

func TestClaimAcknowledgesBeforeTopicEdit(t *testing.T) {
	f := newFixture(t, true)
	ch := f.openTicket(t, opener, "Technical Issue", "High")

	r := &testutil.RecordingResponder{}
	ackedFirst := false
	f.platform.Before(testutil.OpSetTopic, func() {
		ackedFirst = r.Deferred
	})
	if err := f.panel.Claim(context.Background(), click(staffS1, PanelCustomID(ActionClaim, opener.ID), ch.ID), r); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !ackedFirst {
		t.Error("topic was edited before the interaction was acknowledged")
	}
	if len(r.Responses) != 0 {
		t.Errorf("claim answered with a direct response: %+v", r.Responses)
	}
}

func TestSelectorPromptCarriesOpenerAndDeadline(t *testing.T) {
	f := newFixture(t, false)
	ch := f.openTicket(t, opener, "Technical Issue", "High")

	r := &testutil.RecordingResponder{}
	if err := f.panel.RemoveUser(context.Background(), click(opener, PanelCustomID(ActionRemoveUser, opener.ID), ch.ID), r); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	prompt := r.Responses[0]
	if !prompt.Ephemeral || prompt.Content != "Select a user to remove:" {
		t.Errorf("prompt = %+v", prompt)
	}
	picker := prompt.Rows[0][0]
	if picker.Kind != domain.ComponentUserSelect {
		t.Fatalf("picker kind = %v", picker.Kind)
	}
	want := selectorCustomID(DirectionRemove, opener.ID, f.clock.Now().Add(60*time.Second))
	if picker.CustomID != want {
		t.Errorf("custom id = %q, want %q", picker.CustomID, want)
	}

	err := f.panel.AddUser(context.Background(), click(stranger, PanelCustomID(ActionAddUser, opener.ID), ch.ID), r)
	requireCode(t, err, errorutil.CodeAuthorizationDenied, "You are not allowed to manage this ticket.")
}
