package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Responder wraps the reply surface of one interaction. The gateway allows
// exactly one initial response per interaction; everything after that is a
// followup or an edit.
type Responder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	dryRun      bool

	mu        sync.Mutex
	responded bool
}

func (c *Client) Responder(i *discordgo.InteractionCreate) *Responder {
	return &Responder{session: c.session, interaction: i.Interaction, dryRun: c.dryRun}
}

// markResponded claims the initial-response slot and reports whether it
// was already taken.
func (r *Responder) markResponded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	was := r.responded
	r.responded = true
	return was
}

// AckUpdate defers the component response so the control stops spinning
// while the handler works.
func (r *Responder) AckUpdate(ctx context.Context) error {
	if r.dryRun {
		return nil
	}
	r.markResponded()
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ack interaction: %w", err)
	}
	return nil
}

// Ephemeral answers the interaction with a message only the invoker sees.
func (r *Responder) Ephemeral(ctx context.Context, content string) error {
	if r.dryRun {
		return nil
	}
	r.markResponded()
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send ephemeral response: %w", err)
	}
	return nil
}

// UpdateMessage replaces the content and controls of the message carrying
// the pressed component. After a deferred ack the initial-response slot is
// gone, so it edits the response instead; both land on the same message.
func (r *Responder) UpdateMessage(ctx context.Context, content string, components []discordgo.MessageComponent) error {
	if r.dryRun {
		return nil
	}
	if r.markResponded() {
		return r.EditOriginal(ctx, content, components)
	}
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("update interaction message: %w", err)
	}
	return nil
}

// DisableControls greys out the pressed panel's buttons without touching
// its content.
func (r *Responder) DisableControls(ctx context.Context) error {
	if r.dryRun || r.interaction.Message == nil {
		return nil
	}
	components := DisableComponents(r.interaction.Message.Components)

	if r.markResponded() {
		edit := &discordgo.WebhookEdit{Components: &components}
		if _, err := r.session.InteractionResponseEdit(r.interaction, edit, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("disable panel controls: %w", err)
		}
		return nil
	}

	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    r.interaction.Message.Content,
			Components: components,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("disable panel controls: %w", err)
	}
	return nil
}

// FollowupEphemeral posts after the initial response was already sent.
func (r *Responder) FollowupEphemeral(ctx context.Context, content string) error {
	if r.dryRun {
		return nil
	}
	_, err := r.session.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send followup: %w", err)
	}
	return nil
}

// EditOriginal rewrites the deferred response in place. Purge progress uses
// it as an idempotent status line.
func (r *Responder) EditOriginal(ctx context.Context, content string, components []discordgo.MessageComponent) error {
	if r.dryRun {
		return nil
	}
	edit := &discordgo.WebhookEdit{Content: &content}
	if components != nil {
		edit.Components = &components
	}
	if _, err := r.session.InteractionResponseEdit(r.interaction, edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit interaction response: %w", err)
	}
	return nil
}
