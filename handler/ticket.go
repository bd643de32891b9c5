package handler

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/hxzem/ticket-control/domain/model"
)

// closeGraceDelay is the fixed wait between the close acknowledgement and
// the destructive part of close. Not configurable per call.
var closeGraceDelay = 5 * time.Second

const notATicketMsg = "This channel is not a ticket."

// openTicket handles a press on a ticket-open panel button: validates the
// category, creates the channel, persists the record and posts the intro
// message with the in-ticket controls. If channel creation fails, no record
// is created.
func (h *Handler) openTicket(i *discordgo.InteractionCreate, categoryID, label string) {
	customID := openButtonCustomID(categoryID, label)
	if !h.registry.known(customID) {
		// A restart may have raced the panel press; reload before rejecting.
		if err := h.restoreButtonViews(i.GuildID); err != nil {
			slog.Error("restoreButtonViews failed", slog.Any("err", err))
		}
		if !h.registry.known(customID) {
			h.respondEphemeral(i.Interaction, "This button is no longer active.")
			return
		}
	}

	actor := actorFromInteraction(i)
	cfg, err := h.ds.GetConfig(i.GuildID)
	if err != nil {
		slog.Error("GetConfig failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Something went wrong, please try again.")
		return
	}

	category, err := h.client.Channel(categoryID)
	if err != nil || category.Type != discordgo.ChannelTypeGuildCategory {
		h.respondEphemeral(i.Interaction, "The category for this button no longer exists.")
		return
	}

	name := ticketChannelName(i.Member.User.Username)
	channel, err := h.client.GuildChannelCreateComplex(i.GuildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             categoryID,
		PermissionOverwrites: overwritesFor(i.GuildID, actor.ID, "", cfg.WriteRoleID, false),
	})
	if err != nil {
		slog.Error("channel create failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Could not create the ticket channel.")
		return
	}

	ticket := &model.Ticket{
		ChannelID:  channel.ID,
		GuildID:    i.GuildID,
		OwnerID:    actor.ID,
		CategoryID: categoryID,
		CreatedAt:  time.Now(),
	}
	if err := h.ds.SaveTicket(ticket); err != nil {
		slog.Error("SaveTicket failed", slog.Any("err", err))
		if _, derr := h.client.ChannelDelete(channel.ID); derr != nil {
			slog.Error("cleanup of unsaved ticket channel failed", slog.Any("err", derr))
		}
		h.respondEphemeral(i.Interaction, "Could not create the ticket, please try again.")
		return
	}

	if err := h.postTicketIntro(ticket, cfg, label); err != nil {
		slog.Error("postTicketIntro failed", slog.Any("err", err))
	}

	h.respondEphemeral(i.Interaction, fmt.Sprintf("Your ticket is ready: <#%s>", channel.ID))
}

func (h *Handler) postTicketIntro(t *model.Ticket, cfg *model.GuildConfig, label string) error {
	embeds := []*discordgo.MessageEmbed{{
		Title:       label,
		Description: fmt.Sprintf("Welcome <@%s>! The team has been notified and will be with you shortly.", t.OwnerID),
		Color:       0x5865F2,
	}}

	auto, err := h.ds.GetCategoryMessage(t.GuildID, t.CategoryID)
	if err != nil {
		return fmt.Errorf("GetCategoryMessage failed: %w", err)
	}
	if auto != nil {
		embed := &discordgo.MessageEmbed{Description: auto.Text, Color: 0x2B2D31}
		if auto.ImageURL != "" {
			embed.Image = &discordgo.MessageEmbedImage{URL: auto.ImageURL}
		}
		embeds = append(embeds, embed)
	}

	var content string
	if cfg.MentionRoleID != "" {
		content = fmt.Sprintf("<@&%s>", cfg.MentionRoleID)
	}

	_, err = h.client.ChannelMessageSendComplex(t.ChannelID, &discordgo.MessageSend{
		Content:    content,
		Embeds:     embeds,
		Components: ticketControls(cfg),
	})
	if err != nil {
		return fmt.Errorf("failed to post intro message: %w", err)
	}
	return nil
}

// acceptTicket claims the ticket for the actor. Re-accepting overwrites the
// previous handler; each successful accept posts a fresh receipt.
func (h *Handler) acceptTicket(i *discordgo.InteractionCreate) {
	unlock := h.ticketMu.lock(i.ChannelID)
	defer unlock()

	ticket, err := h.ds.GetTicket(i.GuildID, i.ChannelID)
	if err != nil {
		slog.Error("GetTicket failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Something went wrong, please try again.")
		return
	}
	if ticket == nil {
		h.respondEphemeral(i.Interaction, notATicketMsg)
		return
	}

	actor := actorFromInteraction(i)
	if !authorizeTicketAction(actor, ticket, actionAccept) {
		h.respondEphemeral(i.Interaction, "You cannot accept your own ticket.")
		return
	}

	ticket.HandlerID = actor.ID
	if err := h.ds.SaveTicket(ticket); err != nil {
		slog.Error("SaveTicket failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Could not accept the ticket, please try again.")
		return
	}

	cfg, err := h.ds.GetConfig(i.GuildID)
	if err != nil {
		slog.Error("GetConfig failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Something went wrong, please try again.")
		return
	}
	if err := h.syncTicketPermissions(ticket, cfg, true); err != nil {
		slog.Error("syncTicketPermissions failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Accepted, but channel permissions could not be updated.")
		return
	}

	if _, err := h.client.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s> %s", ticket.OwnerID, cfg.ReceiptMessage),
	}); err != nil {
		slog.Error("failed to post receipt message", slog.Any("err", err))
	}

	h.respond(i.Interaction, fmt.Sprintf("<@%s> is now handling this ticket.", actor.ID))
}

func (h *Handler) renameTicket(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	unlock := h.ticketMu.lock(i.ChannelID)
	defer unlock()

	ticket, err := h.ds.GetTicket(i.GuildID, i.ChannelID)
	if err != nil {
		slog.Error("GetTicket failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Something went wrong, please try again.")
		return
	}
	if ticket == nil {
		h.respondEphemeral(i.Interaction, notATicketMsg)
		return
	}

	actor := actorFromInteraction(i)
	if !authorizeTicketAction(actor, ticket, actionRename) {
		h.respondEphemeral(i.Interaction, "Only the ticket handler or staff can rename this ticket.")
		return
	}

	opts := optionMap(data.Options)
	newName, ok := opts["name"]
	if !ok || strings.TrimSpace(newName.StringValue()) == "" {
		h.respondEphemeral(i.Interaction, "A new name is required.")
		return
	}

	if _, err := h.client.ChannelEditComplex(i.ChannelID, &discordgo.ChannelEdit{
		Name: ticketChannelName(newName.StringValue()),
	}); err != nil {
		if isUnknownChannel(err) {
			h.respondEphemeral(i.Interaction, notATicketMsg)
			return
		}
		slog.Error("channel rename failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Could not rename the channel.")
		return
	}

	h.respond(i.Interaction, fmt.Sprintf("Ticket renamed to `%s`.", ticketChannelName(newName.StringValue())))
}

func (h *Handler) transferTicket(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	unlock := h.ticketMu.lock(i.ChannelID)
	defer unlock()

	ticket, err := h.ds.GetTicket(i.GuildID, i.ChannelID)
	if err != nil {
		slog.Error("GetTicket failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Something went wrong, please try again.")
		return
	}
	if ticket == nil {
		h.respondEphemeral(i.Interaction, notATicketMsg)
		return
	}

	actor := actorFromInteraction(i)
	if !authorizeTicketAction(actor, ticket, actionTransfer) {
		h.respondEphemeral(i.Interaction, "Only the ticket handler or staff can transfer this ticket.")
		return
	}

	opts := optionMap(data.Options)
	memberOpt, ok := opts["member"]
	if !ok {
		h.respondEphemeral(i.Interaction, "A member to transfer to is required.")
		return
	}
	newHandler := memberOpt.UserValue(nil)
	if newHandler.ID == ticket.OwnerID {
		h.respondEphemeral(i.Interaction, "The ticket owner cannot be its handler.")
		return
	}
	member, err := h.client.GuildMember(i.GuildID, newHandler.ID)
	if err != nil {
		h.respondEphemeral(i.Interaction, "That member could not be found in this server.")
		return
	}
	if member.User != nil && member.User.Bot {
		h.respondEphemeral(i.Interaction, "A bot cannot handle tickets.")
		return
	}

	ticket.HandlerID = newHandler.ID
	if err := h.ds.SaveTicket(ticket); err != nil {
		slog.Error("SaveTicket failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Could not transfer the ticket, please try again.")
		return
	}

	cfg, err := h.ds.GetConfig(i.GuildID)
	if err != nil {
		slog.Error("GetConfig failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Something went wrong, please try again.")
		return
	}
	if err := h.syncTicketPermissions(ticket, cfg, true); err != nil {
		slog.Error("syncTicketPermissions failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Transferred, but channel permissions could not be updated.")
		return
	}

	h.respond(i.Interaction, fmt.Sprintf("Ticket transferred to <@%s>.", newHandler.ID))
}

// closeTicket acknowledges, waits out the grace delay, removes the record
// and then requests channel deletion. Record removal precedes the delete
// call; a failed delete restores the record so the ticket stays open.
func (h *Handler) closeTicket(i *discordgo.InteractionCreate) {
	unlock := h.ticketMu.lock(i.ChannelID)
	ticket, err := h.ds.GetTicket(i.GuildID, i.ChannelID)
	if err != nil {
		unlock()
		slog.Error("GetTicket failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Something went wrong, please try again.")
		return
	}
	if ticket == nil {
		unlock()
		h.respondEphemeral(i.Interaction, notATicketMsg)
		return
	}

	actor := actorFromInteraction(i)
	if !authorizeTicketAction(actor, ticket, actionClose) {
		unlock()
		h.respondEphemeral(i.Interaction, "Only the ticket handler or staff can close this ticket.")
		return
	}
	unlock()

	h.respond(i.Interaction, fmt.Sprintf("Closing this ticket in %d seconds.", int(closeGraceDelay.Seconds())))

	// Grace delay so the acknowledgement is seen before anything is
	// destroyed. Other events on this ticket may run meanwhile.
	time.Sleep(closeGraceDelay)

	unlock = h.ticketMu.lock(i.ChannelID)
	current, err := h.ds.GetTicket(i.GuildID, i.ChannelID)
	if err != nil {
		unlock()
		slog.Error("GetTicket failed", slog.Any("err", err))
		return
	}
	removed := false
	if current != nil {
		if err := h.ds.DeleteTicket(i.GuildID, i.ChannelID); err != nil {
			unlock()
			slog.Error("DeleteTicket failed", slog.Any("err", err))
			h.followupEphemeral(i.Interaction, "Could not close the ticket, please try again.")
			return
		}
		removed = true
	}
	unlock()

	// A missing record never blocks cleanup; deletion is the source of
	// truth for "gone".
	if _, err := h.client.ChannelDelete(i.ChannelID); err != nil {
		if isUnknownChannel(err) {
			return
		}
		slog.Error("channel delete failed", slog.Any("err", err))
		if removed {
			if serr := h.ds.SaveTicket(current); serr != nil {
				slog.Error("failed to restore ticket record after failed delete", slog.Any("err", serr))
			}
		}
		h.followupEphemeral(i.Interaction, "The channel could not be deleted; the ticket is still open.")
	}
}

func (h *Handler) followupEphemeral(i *discordgo.Interaction, msg string) {
	if _, err := h.client.FollowupMessageCreate(i, false, &discordgo.WebhookParams{
		Content: msg,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		slog.Error("FollowupMessageCreate failed", slog.Any("err", err))
	}
}

func ticketChannelName(base string) string {
	name := strings.ToLower(strings.TrimSpace(base))
	name = strings.ReplaceAll(name, " ", "-")
	if !strings.HasPrefix(name, "ticket-") {
		name = "ticket-" + name
	}
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}
