package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Acrellux/vctools-sub001/internal/domain/enums"
	"github.com/Acrellux/vctools-sub001/internal/domain/moderr"
	"github.com/Acrellux/vctools-sub001/internal/services/purge"
)

// InteractionHandler receives every component and command interaction.
type InteractionHandler func(context.Context, *discordgo.InteractionCreate)

type Client struct {
	session *discordgo.Session
	logger  *slog.Logger
	handler InteractionHandler
	dryRun  bool
}

func NewClient(token string, logger *slog.Logger, handler InteractionHandler) (*Client, error) {
	if handler == nil {
		return nil, errors.New("interaction handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if strings.TrimSpace(token) == "" {
		return &Client{logger: logger, handler: handler, dryRun: true}, nil
	}

	session, err := discordgo.New("Bot " + strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildMessages

	return &Client{session: session, logger: logger, handler: handler}, nil
}

func (c *Client) Start(ctx context.Context) error {
	if c.dryRun {
		c.logger.Warn("BOT_TOKEN is empty, running in dry mode")
		<-ctx.Done()
		return nil
	}

	c.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		c.handler(ctx, i)
	})

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	c.logger.Info("discord session opened")

	<-ctx.Done()
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

// notFound reports whether the platform answered 404 for the entity.
func notFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

func actionPermission(kind enums.ActionKind) int64 {
	switch kind {
	case enums.ActionMute, enums.ActionUnmute, enums.ActionWarn:
		return discordgo.PermissionModerateMembers
	case enums.ActionKick:
		return discordgo.PermissionKickMembers
	case enums.ActionBan, enums.ActionUnban:
		return discordgo.PermissionBanMembers
	case enums.ActionClean:
		return discordgo.PermissionManageMessages
	default:
		return discordgo.PermissionAdministrator
	}
}

// CanModerate checks the actor's guild-wide permission for the action kind.
func (c *Client) CanModerate(ctx context.Context, guildID, actorID string, kind enums.ActionKind) (bool, error) {
	perms, err := c.memberPermissions(ctx, guildID, actorID)
	if err != nil {
		return false, err
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return true, nil
	}
	return perms&actionPermission(kind) != 0, nil
}

// IsAdmin reports whether the user is the guild owner or carries the
// administrator permission. Bot-level settings require this.
func (c *Client) IsAdmin(ctx context.Context, guildID, userID string) (bool, error) {
	perms, err := c.memberPermissions(ctx, guildID, userID)
	if err != nil {
		return false, err
	}
	return perms&discordgo.PermissionAdministrator != 0, nil
}

func (c *Client) IsGuildOwner(ctx context.Context, guildID, userID string) (bool, error) {
	guild, err := c.guild(ctx, guildID)
	if err != nil {
		return false, err
	}
	return guild.OwnerID == userID, nil
}

// MemberRank is the position of the member's highest role. Non-members get
// a not-found error so callers can apply their membership rules.
func (c *Client) MemberRank(ctx context.Context, guildID, userID string) (int, error) {
	member, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if notFound(err) {
			return 0, moderr.New(moderr.KindNotFound, "user is not a guild member")
		}
		return 0, moderr.Wrap(moderr.KindTransient, "fetch guild member", err)
	}

	guild, err := c.guild(ctx, guildID)
	if err != nil {
		return 0, err
	}
	return highestRolePosition(guild.Roles, member.Roles), nil
}

func (c *Client) BotRank(ctx context.Context, guildID string) (int, error) {
	if c.session.State == nil || c.session.State.User == nil {
		return 0, moderr.New(moderr.KindTransient, "bot identity is not ready")
	}
	return c.MemberRank(ctx, guildID, c.session.State.User.ID)
}

func (c *Client) Timeout(ctx context.Context, guildID, userID string, until time.Time, reason string) error {
	err := c.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx), withAuditReason(reason))
	if err != nil {
		return moderr.Wrap(moderr.KindTransient, "apply timeout", err)
	}
	return nil
}

func (c *Client) ClearTimeout(ctx context.Context, guildID, userID string) error {
	if err := c.session.GuildMemberTimeout(guildID, userID, nil, discordgo.WithContext(ctx)); err != nil {
		return moderr.Wrap(moderr.KindTransient, "clear timeout", err)
	}
	return nil
}

func (c *Client) Kick(ctx context.Context, guildID, userID, reason string) error {
	if err := c.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx)); err != nil {
		return moderr.Wrap(moderr.KindTransient, "kick member", err)
	}
	return nil
}

func (c *Client) Ban(ctx context.Context, guildID, userID, reason string) error {
	if err := c.session.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx)); err != nil {
		return moderr.Wrap(moderr.KindTransient, "ban user", err)
	}
	return nil
}

func (c *Client) Unban(ctx context.Context, guildID, userID string) error {
	err := c.session.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if notFound(err) {
			return moderr.New(moderr.KindNotFound, "user is not banned")
		}
		return moderr.Wrap(moderr.KindTransient, "unban user", err)
	}
	return nil
}

func (c *Client) DirectMessage(ctx context.Context, userID, content string) error {
	channel, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return moderr.Wrap(moderr.KindTransient, "open dm channel", err)
	}
	if _, err := c.session.ChannelMessageSend(channel.ID, content, discordgo.WithContext(ctx)); err != nil {
		return moderr.Wrap(moderr.KindTransient, "send dm", err)
	}
	return nil
}

// DisplayName prefers the guild nickname, then the global name, then the
// username. Resolution failures fall back to the raw id at the caller.
func (c *Client) DisplayName(ctx context.Context, guildID, userID string) (string, error) {
	member, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err == nil {
		if member.Nick != "" {
			return member.Nick, nil
		}
		if member.User != nil {
			if member.User.GlobalName != "" {
				return member.User.GlobalName, nil
			}
			return member.User.Username, nil
		}
	}

	user, err := c.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", moderr.Wrap(moderr.KindTransient, "resolve display name", err)
	}
	if user.GlobalName != "" {
		return user.GlobalName, nil
	}
	return user.Username, nil
}

// TextChannelIDs lists the guild's text channels for a purge walk.
func (c *Client) TextChannelIDs(ctx context.Context, guildID string) ([]string, error) {
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, moderr.Wrap(moderr.KindTransient, "list guild channels", err)
	}

	ids := make([]string, 0, len(channels))
	for _, channel := range channels {
		if channel.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		ids = append(ids, channel.ID)
	}
	return ids, nil
}

func (c *Client) ListBefore(ctx context.Context, channelID, beforeID string, limit int) ([]purge.Message, error) {
	messages, err := c.session.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, moderr.Wrap(moderr.KindTransient, "list channel messages", err)
	}

	out := make([]purge.Message, 0, len(messages))
	for _, msg := range messages {
		if msg == nil || msg.Author == nil {
			continue
		}
		out = append(out, purge.Message{
			ID:        msg.ID,
			AuthorID:  msg.Author.ID,
			Pinned:    msg.Pinned,
			CreatedAt: msg.Timestamp.UTC(),
		})
	}
	return out, nil
}

func (c *Client) DeleteBatch(ctx context.Context, channelID string, ids []string) error {
	if err := c.session.ChannelMessagesBulkDelete(channelID, ids, discordgo.WithContext(ctx)); err != nil {
		return moderr.Wrap(moderr.KindTransient, "bulk delete messages", err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, channelID, id string) error {
	if err := c.session.ChannelMessageDelete(channelID, id, discordgo.WithContext(ctx)); err != nil {
		return moderr.Wrap(moderr.KindTransient, "delete message", err)
	}
	return nil
}

func (c *Client) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if c.session.State != nil {
		if guild, err := c.session.State.Guild(guildID); err == nil && guild != nil {
			return guild, nil
		}
	}

	guild, err := c.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, moderr.Wrap(moderr.KindTransient, "fetch guild", err)
	}
	return guild, nil
}

func (c *Client) memberPermissions(ctx context.Context, guildID, userID string) (int64, error) {
	guild, err := c.guild(ctx, guildID)
	if err != nil {
		return 0, err
	}
	if guild.OwnerID == userID {
		return discordgo.PermissionAdministrator, nil
	}

	member, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if notFound(err) {
			return 0, moderr.New(moderr.KindNotFound, "user is not a guild member")
		}
		return 0, moderr.Wrap(moderr.KindTransient, "fetch guild member", err)
	}

	byID := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		byID[role.ID] = role
	}

	var perms int64
	// The @everyone role shares the guild id.
	if everyone, ok := byID[guildID]; ok {
		perms |= everyone.Permissions
	}
	for _, roleID := range member.Roles {
		if role, ok := byID[roleID]; ok {
			perms |= role.Permissions
		}
	}
	return perms, nil
}

func highestRolePosition(guildRoles []*discordgo.Role, memberRoles []string) int {
	byID := make(map[string]*discordgo.Role, len(guildRoles))
	for _, role := range guildRoles {
		byID[role.ID] = role
	}

	highest := 0
	for _, roleID := range memberRoles {
		if role, ok := byID[roleID]; ok && role.Position > highest {
			highest = role.Position
		}
	}
	return highest
}

func withAuditReason(reason string) discordgo.RequestOption {
	return discordgo.WithAuditLogReason(strings.TrimSpace(reason))
}
