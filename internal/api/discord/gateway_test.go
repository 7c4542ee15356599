package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
)

func TestInteractionFromCommand(t *testing.T) {
	in, ok := Interaction(&discordgo.Interaction{
		ID:        "1",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "10",
		ChannelID: "20",
		Member: &discordgo.Member{
			User:  &discordgo.User{ID: "100", Username: "alice", Discriminator: "0"},
			Roles: []string{"500"},
		},
		Data: discordgo.ApplicationCommandInteractionData{Name: CommandTicket},
	})
	if !ok {
		t.Fatal("command not converted")
	}
	if in.Kind != domain.InteractionCommand || in.Command != "ticket" || in.GuildID != "10" {
		t.Errorf("interaction = %+v", in)
	}
	if in.Actor.ID != "100" || !in.Actor.HasRole("500") {
		t.Errorf("actor = %+v", in.Actor)
	}
}

func TestInteractionFromComponentInDM(t *testing.T) {
	in, ok := Interaction(&discordgo.Interaction{
		ID:        "2",
		Type:      discordgo.InteractionMessageComponent,
		ChannelID: "30",
		User:      &discordgo.User{ID: "100", Username: "alice"},
		Data: discordgo.MessageComponentInteractionData{
			CustomID: "ticket:add_user_select:100:1717234260",
			Values:   []string{"400"},
		},
	})
	if !ok {
		t.Fatal("component not converted")
	}
	if in.InGuild() {
		t.Error("DM interaction reported as guild")
	}
	if in.CustomID != "ticket:add_user_select:100:1717234260" || len(in.Values) != 1 || in.Values[0] != "400" {
		t.Errorf("interaction = %+v", in)
	}
	if len(in.Actor.Roles) != 0 {
		t.Error("DM actor has no roles")
	}
}

func TestInteractionIgnoresOtherTypes(t *testing.T) {
	if _, ok := Interaction(&discordgo.Interaction{Type: discordgo.InteractionModalSubmit}); ok {
		t.Error("modal submits are not handled")
	}
}

func TestCommands(t *testing.T) {
	cmds := Commands()
	if len(cmds) != 2 {
		t.Fatalf("got %d commands", len(cmds))
	}
	want := map[string]string{
		"ticket": "Open a new support ticket",
		"close":  "Close this ticket (channel will be deleted)",
	}
	for _, c := range cmds {
		if want[c.Name] != c.Description {
			t.Errorf("command %q description %q", c.Name, c.Description)
		}
		if c.DMPermission == nil || *c.DMPermission {
			t.Errorf("command %q must be guild-only", c.Name)
		}
	}
}

func TestGatewayCheck(t *testing.T) {
	g := NewGateway(nil, config.DiscordConfig{SkipCommandSync: true}, nil)
	if err := g.Check(context.Background()); !errors.Is(err, ErrGatewayDisconnected) {
		t.Fatalf("Check() before ready = %v", err)
	}
	g.onReady(nil, &discordgo.Ready{User: &discordgo.User{ID: "999", Username: "ticketbot"}})
	if err := g.Check(context.Background()); err != nil {
		t.Fatalf("Check() after ready = %v", err)
	}
	g.onDisconnect(nil, &discordgo.Disconnect{})
	if err := g.Check(context.Background()); err == nil {
		t.Fatal("Check() after disconnect should fail")
	}
}

func TestResponderComponents(t *testing.T) {
	if got := components(domain.Reply{}); got != nil {
		t.Errorf("untouched controls should be nil, got %v", got)
	}
	if got := components(domain.Reply{ClearComponents: true}); got == nil || len(got) != 0 {
		t.Errorf("cleared controls should be an empty slice, got %v", got)
	}
	if flags(domain.Reply{Ephemeral: true}) != discordgo.MessageFlagsEphemeral {
		t.Error("ephemeral flag not set")
	}
}
