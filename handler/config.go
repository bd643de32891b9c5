package handler

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/hxzem/ticket-control/domain/model"
)

// roleAction is the closed set of /role operations. Unrecognized values are
// rejected at the boundary, before any store access.
type roleAction int

const (
	roleActionAdd roleAction = iota
	roleActionRemove
	roleActionShow
)

func parseRoleAction(s string) (roleAction, error) {
	switch s {
	case "add":
		return roleActionAdd, nil
	case "remove":
		return roleActionRemove, nil
	case "show":
		return roleActionShow, nil
	default:
		return 0, fmt.Errorf("%w: unknown action %q", model.ErrValidation, s)
	}
}

// gatedCommands are the command names whose role grants /role may manage.
var gatedCommands = []string{
	"role", "scammer", "oppressed", "restart",
	"ticket-config", "category-message", "new-ticket", "add-button",
}

func (h *Handler) handleRoleCommand(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !h.requireCommandPermission(i, "role") {
		return
	}

	opts := optionMap(data.Options)
	actionOpt, okAction := opts["action"]
	roleOpt, okRole := opts["role"]
	commandOpt, okCommand := opts["command"]
	if !okAction || !okRole || !okCommand {
		h.respondEphemeral(i.Interaction, "Action, role and command are all required.")
		return
	}

	action, err := parseRoleAction(actionOpt.StringValue())
	if err != nil {
		h.respondEphemeral(i.Interaction, "Invalid action. Use add, remove or show.")
		return
	}
	command := commandOpt.StringValue()
	if !slices.Contains(gatedCommands, command) {
		h.respondEphemeral(i.Interaction, fmt.Sprintf("Unknown command %q. Valid commands: %s.", command, strings.Join(gatedCommands, ", ")))
		return
	}
	role := roleOpt.RoleValue(nil, "")

	allowed, err := h.ds.GetCommandRoles(i.GuildID, command)
	if err != nil {
		slog.Error("GetCommandRoles failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Something went wrong, please try again.")
		return
	}

	switch action {
	case roleActionAdd:
		if slices.Contains(allowed, role.ID) {
			h.respondEphemeral(i.Interaction, "That role already has permission for this command.")
			return
		}
		allowed = append(allowed, role.ID)
		if err := h.ds.SetCommandRoles(i.GuildID, command, allowed); err != nil {
			slog.Error("SetCommandRoles failed", slog.Any("err", err))
			h.respondEphemeral(i.Interaction, "Could not save the permission, please try again.")
			return
		}
		h.respondEphemeral(i.Interaction, fmt.Sprintf("<@&%s> may now use `/%s`.", role.ID, command))
	case roleActionRemove:
		idx := slices.Index(allowed, role.ID)
		if idx < 0 {
			h.respondEphemeral(i.Interaction, "That role has no permission for this command.")
			return
		}
		allowed = append(allowed[:idx], allowed[idx+1:]...)
		if err := h.ds.SetCommandRoles(i.GuildID, command, allowed); err != nil {
			slog.Error("SetCommandRoles failed", slog.Any("err", err))
			h.respondEphemeral(i.Interaction, "Could not save the permission, please try again.")
			return
		}
		h.respondEphemeral(i.Interaction, fmt.Sprintf("<@&%s> may no longer use `/%s`.", role.ID, command))
	case roleActionShow:
		if len(allowed) == 0 {
			h.respondEphemeral(i.Interaction, fmt.Sprintf("No roles have been granted `/%s`.", command))
			return
		}
		mentions := make([]string, 0, len(allowed))
		for _, id := range allowed {
			mentions = append(mentions, fmt.Sprintf("<@&%s>", id))
		}
		h.respondEphemeral(i.Interaction, fmt.Sprintf("Roles with `/%s`: %s", command, strings.Join(mentions, " ")))
	}
}

func (h *Handler) handleTicketConfig(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !h.requireCommandPermission(i, "ticket-config") {
		return
	}
	if len(data.Options) == 0 {
		h.respondEphemeral(i.Interaction, "A subcommand is required.")
		return
	}
	sub := data.Options[0]
	opts := optionMap(sub.Options)

	cfg, err := h.ds.GetConfig(i.GuildID)
	if err != nil {
		slog.Error("GetConfig failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Something went wrong, please try again.")
		return
	}

	var done string
	switch sub.Name {
	case "mention-role":
		cfg.MentionRoleID = opts["role"].RoleValue(nil, "").ID
		done = fmt.Sprintf("New tickets will mention <@&%s>.", cfg.MentionRoleID)
	case "write-role":
		cfg.WriteRoleID = opts["role"].RoleValue(nil, "").ID
		done = fmt.Sprintf("<@&%s> keeps write access in claimed tickets.", cfg.WriteRoleID)
	case "receipt":
		text := strings.TrimSpace(opts["text"].StringValue())
		if text == "" {
			h.respondEphemeral(i.Interaction, "The receipt message cannot be empty.")
			return
		}
		cfg.ReceiptMessage = text
		done = "Receipt message updated."
	case "labels":
		accept := strings.TrimSpace(opts["accept"].StringValue())
		closeLabel := strings.TrimSpace(opts["close"].StringValue())
		if accept == "" || closeLabel == "" {
			h.respondEphemeral(i.Interaction, "Both labels are required.")
			return
		}
		cfg.AcceptLabel = accept
		cfg.CloseLabel = closeLabel
		done = "In-ticket button labels updated."
	default:
		h.respondEphemeral(i.Interaction, "Unknown subcommand.")
		return
	}

	if err := h.ds.SaveConfig(i.GuildID, cfg); err != nil {
		slog.Error("SaveConfig failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Could not save the configuration, please try again.")
		return
	}
	h.respondEphemeral(i.Interaction, done)
}

func (h *Handler) handleCategoryMessage(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !h.requireCommandPermission(i, "category-message") {
		return
	}
	if len(data.Options) == 0 {
		h.respondEphemeral(i.Interaction, "A subcommand is required.")
		return
	}
	sub := data.Options[0]
	opts := optionMap(sub.Options)

	categoryOpt, ok := opts["category"]
	if !ok {
		h.respondEphemeral(i.Interaction, "A category is required.")
		return
	}
	categoryID, _ := categoryOpt.Value.(string)

	switch sub.Name {
	case "set":
		msg := &model.CategoryMessage{}
		if o, ok := opts["text"]; ok {
			msg.Text = o.StringValue()
		}
		if o, ok := opts["image"]; ok {
			msg.ImageURL = o.StringValue()
		}
		if msg.Text == "" && msg.ImageURL == "" {
			h.respondEphemeral(i.Interaction, "Provide a text or an image for the auto-message.")
			return
		}
		if err := h.ds.SaveCategoryMessage(i.GuildID, categoryID, msg); err != nil {
			slog.Error("SaveCategoryMessage failed", slog.Any("err", err))
			h.respondEphemeral(i.Interaction, "Could not save the auto-message, please try again.")
			return
		}
		h.respondEphemeral(i.Interaction, "Auto-message for the category saved.")
	case "delete":
		if err := h.ds.DeleteCategoryMessage(i.GuildID, categoryID); err != nil {
			slog.Error("DeleteCategoryMessage failed", slog.Any("err", err))
			h.respondEphemeral(i.Interaction, "Could not delete the auto-message, please try again.")
			return
		}
		h.respondEphemeral(i.Interaction, "Auto-message for the category deleted.")
	default:
		h.respondEphemeral(i.Interaction, "Unknown subcommand.")
	}
}

func (h *Handler) handleNewTicket(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !h.requireCommandPermission(i, "new-ticket") {
		return
	}

	opts := optionMap(data.Options)
	categoryOpt, okCategory := opts["category"]
	labelOpt, okLabel := opts["label"]
	if !okCategory || !okLabel {
		h.respondEphemeral(i.Interaction, "Category and label are required.")
		return
	}
	categoryID, _ := categoryOpt.Value.(string)
	def := model.ButtonDefinition{
		Label:      strings.TrimSpace(labelOpt.StringValue()),
		Style:      "primary",
		CategoryID: categoryID,
	}
	if def.Label == "" {
		h.respondEphemeral(i.Interaction, "The button label cannot be empty.")
		return
	}
	if o, ok := opts["style"]; ok {
		def.Style = o.StringValue()
	}
	title := "Open a ticket"
	if o, ok := opts["title"]; ok && strings.TrimSpace(o.StringValue()) != "" {
		title = o.StringValue()
	}

	category, err := h.client.Channel(categoryID)
	if err != nil || category.Type != discordgo.ChannelTypeGuildCategory {
		h.respondEphemeral(i.Interaction, "That channel is not a category.")
		return
	}

	msg, err := h.client.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       title,
			Description: "Press a button below to open a ticket.",
			Color:       0x5865F2,
		}},
		Components: buildPanelComponents([]model.ButtonDefinition{def}),
	})
	if err != nil {
		slog.Error("failed to post panel message", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Could not post the ticket panel.")
		return
	}

	if err := h.ds.AppendButton(i.GuildID, msg.ID, def); err != nil {
		slog.Error("AppendButton failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "The panel was posted but could not be saved; its button will stop working after a restart.")
		return
	}
	h.registry.register(def)

	h.respondEphemeral(i.Interaction, fmt.Sprintf("Ticket panel created (message ID %s).", msg.ID))
}

func (h *Handler) handleAddButton(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !h.requireCommandPermission(i, "add-button") {
		return
	}

	opts := optionMap(data.Options)
	messageOpt, okMessage := opts["message_id"]
	categoryOpt, okCategory := opts["category"]
	labelOpt, okLabel := opts["label"]
	if !okMessage || !okCategory || !okLabel {
		h.respondEphemeral(i.Interaction, "Message ID, category and label are required.")
		return
	}
	messageID := messageOpt.StringValue()
	categoryID, _ := categoryOpt.Value.(string)
	def := model.ButtonDefinition{
		Label:      strings.TrimSpace(labelOpt.StringValue()),
		Style:      "primary",
		CategoryID: categoryID,
	}
	if def.Label == "" {
		h.respondEphemeral(i.Interaction, "The button label cannot be empty.")
		return
	}
	if o, ok := opts["style"]; ok {
		def.Style = o.StringValue()
	}

	set, err := h.ds.GetButtons(i.GuildID)
	if err != nil {
		slog.Error("GetButtons failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Something went wrong, please try again.")
		return
	}
	if _, ok := set[messageID]; !ok {
		h.respondEphemeral(i.Interaction, "No ticket panel with that message ID.")
		return
	}

	if err := h.ds.AppendButton(i.GuildID, messageID, def); err != nil {
		slog.Error("AppendButton failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Could not save the button, please try again.")
		return
	}
	defs := append(set[messageID], def)

	components := buildPanelComponents(defs)
	if _, err := h.client.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         messageID,
		Channel:    i.ChannelID,
		Components: &components,
	}); err != nil {
		slog.Error("failed to re-render panel message", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "The button was saved but the panel could not be re-rendered.")
		return
	}
	h.registry.register(def)

	h.respondEphemeral(i.Interaction, fmt.Sprintf("Button %q added to the panel.", def.Label))
}
