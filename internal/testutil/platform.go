// Package testutil provides in-memory collaborators for service tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Operation names accepted by FakePlatform.Forbid and FakePlatform.Before.
const (
	OpCreateCategory    = "CreateCategory"
	OpCreateTextChannel = "CreateTextChannel"
	OpSetTopic          = "SetTopic"
	OpDeleteChannel     = "DeleteChannel"
	OpSetOverwrite      = "SetOverwrite"
	OpDeleteOverwrite   = "DeleteOverwrite"
	OpMessages          = "Messages"
	OpSendMessage       = "SendMessage"
)

// FakePlatform is a single-guild, in-memory implementation of platform.Platform.
type FakePlatform struct {
	mu sync.Mutex

	GuildID string
	BotID   string

	nextID     int64
	channels   map[string]domain.Channel
	overwrites map[string]map[string]domain.Overwrite
	members    map[string]domain.Member
	roles      map[string]domain.Role
	messages   map[string][]domain.Message
	sent       map[string][]domain.Reply
	forbidden  map[string]bool
	calls      map[string]int
	hooks      map[string]func()
}

var _ platform.Platform = (*FakePlatform)(nil)

// NewFakePlatform creates an empty guild with the bot as its only member.
func NewFakePlatform(guildID, botID string) *FakePlatform {
	f := &FakePlatform{
		GuildID:    guildID,
		BotID:      botID,
		nextID:     1000,
		channels:   make(map[string]domain.Channel),
		overwrites: make(map[string]map[string]domain.Overwrite),
		members:    make(map[string]domain.Member),
		roles:      make(map[string]domain.Role),
		messages:   make(map[string][]domain.Message),
		sent:       make(map[string][]domain.Reply),
		forbidden:  make(map[string]bool),
		calls:      make(map[string]int),
		hooks:      make(map[string]func()),
	}
	f.members[botID] = domain.Member{ID: botID, Username: "ticketbot", Bot: true}
	return f
}

// AddMember registers a guild member.
func (f *FakePlatform) AddMember(m domain.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[m.ID] = m
}

// AddRole registers a guild role.
func (f *FakePlatform) AddRole(r domain.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[r.ID] = r
}

// AddChannel registers an existing channel.
func (f *FakePlatform) AddChannel(ch domain.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch.GuildID == "" && ch.Kind != domain.ChannelKindDirect {
		ch.GuildID = f.GuildID
	}
	f.channels[ch.ID] = ch
}

// AddMessage appends a message to a channel's history.
func (f *FakePlatform) AddMessage(channelID string, m domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[channelID] = append(f.messages[channelID], m)
}

// Forbid makes the named operation fail with platform.ErrForbidden.
func (f *FakePlatform) Forbid(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forbidden[op] = true
}

// Allow undoes Forbid.
func (f *FakePlatform) Allow(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.forbidden, op)
}

// Before runs fn at the start of every call to op, outside the fake's lock.
// Only CreateTextChannel and SetTopic honour it.
func (f *FakePlatform) Before(op string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[op] = fn
}

func (f *FakePlatform) runHook(op string) {
	f.mu.Lock()
	fn := f.hooks[op]
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Calls returns how many times op was invoked.
func (f *FakePlatform) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// ChannelsUnder lists text channels whose parent is parentID.
func (f *FakePlatform) ChannelsUnder(parentID string) []domain.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Channel
	for _, ch := range f.channels {
		if ch.ParentID == parentID && ch.Kind == domain.ChannelKindText {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CategoriesNamed lists categories with the given name.
func (f *FakePlatform) CategoriesNamed(name string) []domain.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Channel
	for _, ch := range f.channels {
		if ch.Kind == domain.ChannelKindCategory && ch.Name == name {
			out = append(out, ch)
		}
	}
	return out
}

// HasChannel reports whether the channel still exists.
func (f *FakePlatform) HasChannel(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.channels[id]
	return ok
}

// Overwrite returns the overwrite for target on channel, if any.
func (f *FakePlatform) Overwrite(channelID, targetID string) (domain.Overwrite, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ow, ok := f.overwrites[channelID][targetID]
	return ow, ok
}

// Sent returns the messages the bot posted into channel.
func (f *FakePlatform) Sent(channelID string) []domain.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Reply(nil), f.sent[channelID]...)
}

// Topic returns the current topic of a channel.
func (f *FakePlatform) Topic(channelID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[channelID].Topic
}

func (f *FakePlatform) BotUserID() string { return f.BotID }

func (f *FakePlatform) GuildChannels(_ context.Context, guildID string) ([]domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GuildChannels"]++
	var out []domain.Channel
	for _, ch := range f.channels {
		if ch.GuildID == guildID {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakePlatform) Member(_ context.Context, _ string, userID string) (domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return domain.Member{}, platform.ErrNotFound
	}
	return m, nil
}

func (f *FakePlatform) Role(_ context.Context, _ string, roleID string) (domain.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[roleID]
	if !ok {
		return domain.Role{}, platform.ErrNotFound
	}
	return r, nil
}

func (f *FakePlatform) CreateCategory(_ context.Context, guildID, name, _ string) (domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpCreateCategory); err != nil {
		return domain.Channel{}, err
	}
	ch := domain.Channel{ID: f.id(), GuildID: guildID, Name: name, Kind: domain.ChannelKindCategory}
	f.channels[ch.ID] = ch
	return ch, nil
}

func (f *FakePlatform) CreateTextChannel(_ context.Context, guildID string, spec platform.ChannelSpec) (domain.Channel, error) {
	f.runHook(OpCreateTextChannel)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpCreateTextChannel); err != nil {
		return domain.Channel{}, err
	}
	ch := domain.Channel{
		ID:       f.id(),
		GuildID:  guildID,
		ParentID: spec.ParentID,
		Name:     spec.Name,
		Topic:    spec.Topic,
		Kind:     domain.ChannelKindText,
	}
	f.channels[ch.ID] = ch
	f.overwrites[ch.ID] = make(map[string]domain.Overwrite, len(spec.Overwrites))
	for _, ow := range spec.Overwrites {
		f.overwrites[ch.ID][ow.TargetID] = ow
	}
	return ch, nil
}

func (f *FakePlatform) Channel(_ context.Context, channelID string) (domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return domain.Channel{}, platform.ErrNotFound
	}
	return ch, nil
}

func (f *FakePlatform) SetTopic(_ context.Context, channelID, topic string) error {
	f.runHook(OpSetTopic)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpSetTopic); err != nil {
		return err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return platform.ErrNotFound
	}
	if len([]rune(topic)) > domain.TopicLimit {
		return fmt.Errorf("topic exceeds %d characters", domain.TopicLimit)
	}
	ch.Topic = topic
	f.channels[channelID] = ch
	return nil
}

func (f *FakePlatform) DeleteChannel(_ context.Context, channelID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpDeleteChannel); err != nil {
		return err
	}
	if _, ok := f.channels[channelID]; !ok {
		return platform.ErrNotFound
	}
	delete(f.channels, channelID)
	delete(f.overwrites, channelID)
	delete(f.messages, channelID)
	return nil
}

func (f *FakePlatform) SetOverwrite(_ context.Context, channelID string, ow domain.Overwrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpSetOverwrite); err != nil {
		return err
	}
	if _, ok := f.channels[channelID]; !ok {
		return platform.ErrNotFound
	}
	if f.overwrites[channelID] == nil {
		f.overwrites[channelID] = make(map[string]domain.Overwrite)
	}
	f.overwrites[channelID][ow.TargetID] = ow
	return nil
}

func (f *FakePlatform) DeleteOverwrite(_ context.Context, channelID, targetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpDeleteOverwrite); err != nil {
		return err
	}
	if _, ok := f.channels[channelID]; !ok {
		return platform.ErrNotFound
	}
	delete(f.overwrites[channelID], targetID)
	return nil
}

// Messages returns up to limit messages older than beforeID, newest first.
func (f *FakePlatform) Messages(_ context.Context, channelID, beforeID string, limit int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpMessages); err != nil {
		return nil, err
	}
	if _, ok := f.channels[channelID]; !ok {
		return nil, platform.ErrNotFound
	}
	all := append([]domain.Message(nil), f.messages[channelID]...)
	sort.Slice(all, func(i, j int) bool { return idLess(all[j].ID, all[i].ID) })
	out := make([]domain.Message, 0, limit)
	for _, m := range all {
		if beforeID != "" && !idLess(m.ID, beforeID) {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *FakePlatform) SendMessage(_ context.Context, channelID string, msg domain.Reply) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpSendMessage); err != nil {
		return "", err
	}
	if _, ok := f.channels[channelID]; !ok {
		return "", platform.ErrNotFound
	}
	id := f.id()
	f.sent[channelID] = append(f.sent[channelID], msg)
	f.messages[channelID] = append(f.messages[channelID], domain.Message{
		ID:        id,
		Author:    f.members[f.BotID],
		Content:   msg.Content,
		Timestamp: time.Now().UTC(),
	})
	return id, nil
}

// begin counts the call and applies Forbid; callers hold mu.
func (f *FakePlatform) begin(op string) error {
	f.calls[op]++
	if f.forbidden[op] {
		return platform.ErrForbidden
	}
	return nil
}

// id hands out increasing snowflake-like ids; callers hold mu.
func (f *FakePlatform) id() string {
	f.nextID++
	return fmt.Sprintf("%d", f.nextID)
}

func idLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
