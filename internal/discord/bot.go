package discord

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"discord-chatter/internal/llm"
	"discord-chatter/internal/storage"
)

const (
	chatCommand       = "chat"
	threadName        = "Chat session"
	threadAutoArchive = 60 // minutes

	genericErrorReply = "Sorry, something went wrong."
)

// Bot is the Discord front-end: it maps platform events to session and
// interactor calls. It never talks to storage directly.
type Bot struct {
	session    *discordgo.Session
	interactor llm.Interactor
	guilds     map[string]bool
	recorder   storage.Recorder

	ctx        context.Context
	registered []*discordgo.ApplicationCommand
}

// New creates the bot. rec may be nil to disable interaction logging.
func New(token string, interactor llm.Interactor, guilds []string, rec storage.Recorder) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	b := &Bot{
		session:    s,
		interactor: interactor,
		guilds:     make(map[string]bool, len(guilds)),
		recorder:   rec,
	}
	for _, g := range guilds {
		b.guilds[g] = true
	}

	s.AddHandler(b.onReady)
	s.AddHandler(b.onMessageCreate)
	s.AddHandler(b.onInteractionCreate)
	return b, nil
}

// Start opens the gateway connection, registers the slash commands and
// blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	if err := b.registerCommands(); err != nil {
		_ = b.session.Close()
		return err
	}

	<-ctx.Done()
	return b.stop()
}

func (b *Bot) stop() error {
	b.unregisterCommands()
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	log.Printf("Discord bot stopped.")
	return nil
}

func (b *Bot) registerCommands() error {
	cmd := &discordgo.ApplicationCommand{
		Name:        chatCommand,
		Description: "start a chat session",
	}
	appID := b.session.State.User.ID
	for guildID := range b.guilds {
		created, err := b.session.ApplicationCommandCreate(appID, guildID, cmd)
		if err != nil {
			return fmt.Errorf("failed to register /%s in guild %s: %w", chatCommand, guildID, err)
		}
		b.registered = append(b.registered, created)
	}
	return nil
}

func (b *Bot) unregisterCommands() {
	appID := b.session.State.User.ID
	for _, cmd := range b.registered {
		if err := b.session.ApplicationCommandDelete(appID, cmd.GuildID, cmd.ID); err != nil {
			log.Printf("failed to delete command %s in guild %s: %v", cmd.Name, cmd.GuildID, err)
		}
	}
	b.registered = nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	log.Printf("Logged on as %s!", r.User.Username)
}

func (b *Bot) allowedGuild(guildID string) bool {
	return b.guilds[guildID]
}

func isThread(t discordgo.ChannelType) bool {
	return t == discordgo.ChannelTypeGuildPublicThread ||
		t == discordgo.ChannelTypeGuildPrivateThread ||
		t == discordgo.ChannelTypeGuildNewsThread
}
