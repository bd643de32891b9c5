package handler

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/hxzem/ticket-control/domain/model"
)

func roleCommandData(action, roleID, command string) discordgo.ApplicationCommandInteractionData {
	return discordgo.ApplicationCommandInteractionData{
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			strOpt("action", action),
			roleOpt("role", roleID),
			strOpt("command", command),
		},
	}
}

func TestParseRoleAction(t *testing.T) {
	for s, want := range map[string]roleAction{
		"add":    roleActionAdd,
		"remove": roleActionRemove,
		"show":   roleActionShow,
	} {
		got, err := parseRoleAction(s)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := parseRoleAction("Add")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = parseRoleAction("delete")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestHandleRoleCommand_AddRemove(t *testing.T) {
	h, client := newTestHandler(t)
	expectAnyRespond(client)

	h.handleRoleCommand(adminInteraction("guild1", "admin"), roleCommandData("add", "mods", "scammer"))

	roles, err := h.ds.GetCommandRoles("guild1", "scammer")
	assert.NoError(t, err)
	assert.Equal(t, []string{"mods"}, roles)

	// Adding the same role twice does not duplicate the grant.
	h.handleRoleCommand(adminInteraction("guild1", "admin"), roleCommandData("add", "mods", "scammer"))
	roles, err = h.ds.GetCommandRoles("guild1", "scammer")
	assert.NoError(t, err)
	assert.Equal(t, []string{"mods"}, roles)

	h.handleRoleCommand(adminInteraction("guild1", "admin"), roleCommandData("remove", "mods", "scammer"))
	roles, err = h.ds.GetCommandRoles("guild1", "scammer")
	assert.NoError(t, err)
	assert.Empty(t, roles)
}

func TestHandleRoleCommand_Show(t *testing.T) {
	h, client := newTestHandler(t)
	assert.NoError(t, h.ds.SetCommandRoles("guild1", "scammer", []string{"mods", "helpers"}))

	var responses []*discordgo.InteractionResponse
	captureRespond(client, &responses)

	h.handleRoleCommand(adminInteraction("guild1", "admin"), roleCommandData("show", "ignored", "scammer"))

	assert.Len(t, responses, 1)
	assert.Contains(t, responses[0].Data.Content, "<@&mods>")
	assert.Contains(t, responses[0].Data.Content, "<@&helpers>")
}

func TestHandleRoleCommand_Rejections(t *testing.T) {
	h, client := newTestHandler(t)

	var responses []*discordgo.InteractionResponse
	captureRespond(client, &responses)

	h.handleRoleCommand(adminInteraction("guild1", "admin"), roleCommandData("promote", "mods", "scammer"))
	assert.Contains(t, responses[len(responses)-1].Data.Content, "Invalid action")

	h.handleRoleCommand(adminInteraction("guild1", "admin"), roleCommandData("add", "mods", "not-a-command"))
	assert.Contains(t, responses[len(responses)-1].Data.Content, "Unknown command")

	// /dtr is ungated and cannot receive grants.
	h.handleRoleCommand(adminInteraction("guild1", "admin"), roleCommandData("add", "mods", "dtr"))
	assert.Contains(t, responses[len(responses)-1].Data.Content, "Unknown command")

	roles, err := h.ds.GetCommandRoles("guild1", "scammer")
	assert.NoError(t, err)
	assert.Empty(t, roles)
}

func subCommandData(sub string, opts ...*discordgo.ApplicationCommandInteractionDataOption) discordgo.ApplicationCommandInteractionData {
	return discordgo.ApplicationCommandInteractionData{
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name:    sub,
			Type:    discordgo.ApplicationCommandOptionSubCommand,
			Options: opts,
		}},
	}
}

func TestHandleTicketConfig(t *testing.T) {
	h, client := newTestHandler(t)
	expectAnyRespond(client)

	h.handleTicketConfig(adminInteraction("guild1", "admin"), subCommandData("mention-role", roleOpt("role", "staff")))
	h.handleTicketConfig(adminInteraction("guild1", "admin"), subCommandData("write-role", roleOpt("role", "writers")))
	h.handleTicketConfig(adminInteraction("guild1", "admin"), subCommandData("receipt", strOpt("text", "We got it.")))
	h.handleTicketConfig(adminInteraction("guild1", "admin"), subCommandData("labels", strOpt("accept", "Claim"), strOpt("close", "Resolve")))

	cfg, err := h.ds.GetConfig("guild1")
	assert.NoError(t, err)
	assert.Equal(t, "staff", cfg.MentionRoleID)
	assert.Equal(t, "writers", cfg.WriteRoleID)
	assert.Equal(t, "We got it.", cfg.ReceiptMessage)
	assert.Equal(t, "Claim", cfg.AcceptLabel)
	assert.Equal(t, "Resolve", cfg.CloseLabel)
}

func TestHandleTicketConfig_EmptyReceiptRejected(t *testing.T) {
	h, client := newTestHandler(t)
	expectAnyRespond(client)

	h.handleTicketConfig(adminInteraction("guild1", "admin"), subCommandData("receipt", strOpt("text", "   ")))

	cfg, err := h.ds.GetConfig("guild1")
	assert.NoError(t, err)
	assert.Equal(t, model.DefaultGuildConfig().ReceiptMessage, cfg.ReceiptMessage)
}

func TestHandleCategoryMessage(t *testing.T) {
	h, client := newTestHandler(t)
	expectAnyRespond(client)

	h.handleCategoryMessage(adminInteraction("guild1", "admin"), subCommandData("set",
		channelOpt("category", "cat1"),
		strOpt("text", "Read the FAQ first."),
		strOpt("image", "https://example.com/faq.png"),
	))

	msg, err := h.ds.GetCategoryMessage("guild1", "cat1")
	assert.NoError(t, err)
	assert.Equal(t, "Read the FAQ first.", msg.Text)
	assert.Equal(t, "https://example.com/faq.png", msg.ImageURL)

	h.handleCategoryMessage(adminInteraction("guild1", "admin"), subCommandData("delete",
		channelOpt("category", "cat1"),
	))
	msg, err = h.ds.GetCategoryMessage("guild1", "cat1")
	assert.NoError(t, err)
	assert.Nil(t, msg)
}

func TestHandleCategoryMessage_EmptyRejected(t *testing.T) {
	h, client := newTestHandler(t)
	expectAnyRespond(client)

	h.handleCategoryMessage(adminInteraction("guild1", "admin"), subCommandData("set",
		channelOpt("category", "cat1"),
	))

	msg, err := h.ds.GetCategoryMessage("guild1", "cat1")
	assert.NoError(t, err)
	assert.Nil(t, msg)
}

func TestHandleNewTicket(t *testing.T) {
	h, client := newTestHandler(t)

	client.EXPECT().Channel("cat1").Return(&discordgo.Channel{ID: "cat1", Type: discordgo.ChannelTypeGuildCategory}, nil)

	var panel *discordgo.MessageSend
	client.EXPECT().ChannelMessageSendComplex("chan1", gomock.Any()).
		DoAndReturn(func(_ string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
			panel = data
			return &discordgo.Message{ID: "panel-msg"}, nil
		})
	expectAnyRespond(client)

	data := discordgo.ApplicationCommandInteractionData{
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			channelOpt("category", "cat1"),
			strOpt("label", "Support"),
			strOpt("style", "success"),
			strOpt("title", "Need help?"),
		},
	}
	h.handleNewTicket(adminInteraction("guild1", "admin"), data)

	assert.Equal(t, "Need help?", panel.Embeds[0].Title)
	row := panel.Components[0].(discordgo.ActionsRow)
	btn := row.Components[0].(discordgo.Button)
	assert.Equal(t, "Support", btn.Label)
	assert.Equal(t, discordgo.SuccessButton, btn.Style)

	set, err := h.ds.GetButtons("guild1")
	assert.NoError(t, err)
	assert.Len(t, set["panel-msg"], 1)
	assert.Equal(t, "Support", set["panel-msg"][0].Label)
	assert.True(t, h.registry.known(openButtonCustomID("cat1", "Support")))
}

func TestHandleNewTicket_NotACategory(t *testing.T) {
	h, client := newTestHandler(t)

	client.EXPECT().Channel("text-chan").Return(&discordgo.Channel{ID: "text-chan", Type: discordgo.ChannelTypeGuildText}, nil)
	expectAnyRespond(client)

	data := discordgo.ApplicationCommandInteractionData{
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			channelOpt("category", "text-chan"),
			strOpt("label", "Support"),
		},
	}
	h.handleNewTicket(adminInteraction("guild1", "admin"), data)

	set, err := h.ds.GetButtons("guild1")
	assert.NoError(t, err)
	assert.Empty(t, set)
}

func TestHandleAddButton(t *testing.T) {
	h, client := newTestHandler(t)
	assert.NoError(t, h.ds.AppendButton("guild1", "panel-msg", model.ButtonDefinition{Label: "Support", Style: "primary", CategoryID: "cat1"}))

	var edit *discordgo.MessageEdit
	client.EXPECT().ChannelMessageEditComplex(gomock.Any()).
		DoAndReturn(func(msg *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
			edit = msg
			return &discordgo.Message{ID: "panel-msg"}, nil
		})
	expectAnyRespond(client)

	data := discordgo.ApplicationCommandInteractionData{
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			strOpt("message_id", "panel-msg"),
			channelOpt("category", "cat2"),
			strOpt("label", "Billing"),
			strOpt("style", "danger"),
		},
	}
	h.handleAddButton(adminInteraction("guild1", "admin"), data)

	set, err := h.ds.GetButtons("guild1")
	assert.NoError(t, err)
	assert.Len(t, set["panel-msg"], 2)

	// The panel is re-rendered with both buttons.
	assert.Equal(t, "panel-msg", edit.ID)
	row := (*edit.Components)[0].(discordgo.ActionsRow)
	assert.Len(t, row.Components, 2)
	assert.True(t, h.registry.known(openButtonCustomID("cat2", "Billing")))
}

func TestHandleAddButton_UnknownPanelRejected(t *testing.T) {
	h, client := newTestHandler(t)

	var responses []*discordgo.InteractionResponse
	captureRespond(client, &responses)

	data := discordgo.ApplicationCommandInteractionData{
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			strOpt("message_id", "no-such-msg"),
			channelOpt("category", "cat1"),
			strOpt("label", "Support"),
		},
	}
	h.handleAddButton(adminInteraction("guild1", "admin"), data)

	assert.Len(t, responses, 1)
	assert.Contains(t, responses[0].Data.Content, "No ticket panel")

	set, err := h.ds.GetButtons("guild1")
	assert.NoError(t, err)
	assert.Empty(t, set)
}
