package discord

import (
	"errors"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"discord-chatter/internal/session"
	"discord-chatter/internal/storage"
)

// onMessageCreate handles one user turn inside a chat-session thread.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot {
		return
	}
	if !b.allowedGuild(m.GuildID) {
		return
	}

	// Only messages inside a started session are handled; everything else
	// in the guild is none of our business.
	if !b.interactor.KnownSession(b.ctx, m.ChannelID) {
		log.Printf("unknown chat session %s, ignoring message", m.ChannelID)
		return
	}

	if err := s.ChannelTyping(m.ChannelID); err != nil {
		log.Printf("failed to send typing indicator: %v", err)
	}

	reply, err := b.interactor.SendMessage(b.ctx, m.ChannelID, m.Author.ID, m.Content)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			log.Printf("session %s vanished, dropping message", m.ChannelID)
			return
		}
		log.Printf("failed to generate reply for session %s: %v", m.ChannelID, err)
		b.sendMessage(m.ChannelID, genericErrorReply)
		return
	}

	b.recordInteraction(m.ChannelID, m.Author.ID, m.Content, reply)
	b.sendMessage(m.ChannelID, reply)
}

// onInteractionCreate handles the /chat slash command: it creates a thread
// on the command response and starts a session keyed by the thread id.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if !b.allowedGuild(i.GuildID) {
		return
	}
	if i.ApplicationCommandData().Name != chatCommand {
		return
	}

	ch, err := s.Channel(i.ChannelID)
	if err != nil {
		log.Printf("failed to resolve channel %s: %v", i.ChannelID, err)
		return
	}
	if isThread(ch.Type) {
		b.respondEphemeral(i, "The /chat command cannot be used inside a thread.")
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: "Creating a chat session..."},
	}); err != nil {
		log.Printf("failed to respond to /%s: %v", chatCommand, err)
		return
	}

	msg, err := s.InteractionResponse(i.Interaction)
	if err != nil {
		log.Printf("failed to fetch interaction response: %v", err)
		return
	}

	thread, err := s.MessageThreadStartComplex(i.ChannelID, msg.ID, &discordgo.ThreadStart{
		Name:                threadName,
		AutoArchiveDuration: threadAutoArchive,
	})
	if err != nil {
		log.Printf("failed to create thread: %v", err)
		b.sendMessage(i.ChannelID, genericErrorReply)
		return
	}

	if err := b.interactor.StartSession(b.ctx, thread.ID); err != nil {
		log.Printf("failed to start session %s: %v", thread.ID, err)
		b.sendMessage(thread.ID, genericErrorReply)
		return
	}

	b.sendMessage(thread.ID, "Chat session started! You can now send messages.")
}

func (b *Bot) respondEphemeral(i *discordgo.InteractionCreate, content string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("failed to send ephemeral response: %v", err)
	}
}

func (b *Bot) sendMessage(channelID, content string) {
	if _, err := b.session.ChannelMessageSend(channelID, content); err != nil {
		log.Printf("failed to send message to %s: %v", channelID, err)
	}
}

func (b *Bot) recordInteraction(sessionID, userID, userMessage, reply string) {
	if b.recorder == nil {
		return
	}
	err := b.recorder.AppendInteraction(storage.Event{
		Timestamp:         time.Now().UTC(),
		SessionID:         sessionID,
		UserID:            userID,
		UserMessage:       userMessage,
		AssistantResponse: reply,
	})
	if err != nil {
		log.Printf("failed to record interaction: %v", err)
	}
}
