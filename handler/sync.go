package handler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/hxzem/ticket-control/domain/model"
)

// overwritesFor computes the full overwrite set for a ticket channel. The
// set always replaces the channel's current overwrites in one call, so the
// intended state and the applied state cannot drift apart.
//
// everyone: view yes, send only while unlocked. Owner, handler (if any) and
// the configured write role always keep view and send.
func overwritesFor(guildID, ownerID, handlerID, writeRoleID string, locked bool) []*discordgo.PermissionOverwrite {
	everyone := &discordgo.PermissionOverwrite{
		ID:    guildID,
		Type:  discordgo.PermissionOverwriteTypeRole,
		Allow: discordgo.PermissionViewChannel,
	}
	if locked {
		everyone.Deny = discordgo.PermissionSendMessages
	} else {
		everyone.Allow |= discordgo.PermissionSendMessages
	}

	set := []*discordgo.PermissionOverwrite{
		everyone,
		{
			ID:    ownerID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		},
	}
	if handlerID != "" {
		set = append(set, &discordgo.PermissionOverwrite{
			ID:    handlerID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}
	if writeRoleID != "" {
		set = append(set, &discordgo.PermissionOverwrite{
			ID:    writeRoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}
	return set
}

// syncTicketPermissions applies the overwrite set for the ticket's current
// state. A channel that no longer exists counts as already closed.
func (h *Handler) syncTicketPermissions(t *model.Ticket, cfg *model.GuildConfig, locked bool) error {
	set := overwritesFor(t.GuildID, t.OwnerID, t.HandlerID, cfg.WriteRoleID, locked)
	_, err := h.client.ChannelEditComplex(t.ChannelID, &discordgo.ChannelEdit{
		PermissionOverwrites: set,
	})
	if err != nil {
		if isUnknownChannel(err) {
			slog.Warn("ticket channel gone, skipping permission sync", slog.String("channel_id", t.ChannelID))
			return nil
		}
		return fmt.Errorf("failed to edit channel overwrites: %w", err)
	}
	return nil
}

func isUnknownChannel(err error) bool {
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Message != nil {
		return rerr.Message.Code == discordgo.ErrCodeUnknownChannel
	}
	return false
}
