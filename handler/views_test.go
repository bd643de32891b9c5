package handler

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"

	"github.com/hxzem/ticket-control/domain/model"
)

func TestOpenButtonCustomIDRoundTrip(t *testing.T) {
	id := openButtonCustomID("cat1", "Support")
	assert.Equal(t, "ticket_open:cat1:Support", id)

	categoryID, label, ok := parseOpenCustomID(id)
	assert.True(t, ok)
	assert.Equal(t, "cat1", categoryID)
	assert.Equal(t, "Support", label)

	// Labels may contain the separator; everything after the category is label.
	categoryID, label, ok = parseOpenCustomID(openButtonCustomID("cat1", "Q: Billing"))
	assert.True(t, ok)
	assert.Equal(t, "cat1", categoryID)
	assert.Equal(t, "Q: Billing", label)
}

func TestParseOpenCustomID_Invalid(t *testing.T) {
	for _, id := range []string{
		"",
		"ticket_accept",
		"ticket_close",
		"ticket_open",
		"ticket_open:",
		"ticket_open:cat1",
		"ticket_open::label",
		"other:cat1:label",
	} {
		_, _, ok := parseOpenCustomID(id)
		assert.False(t, ok, id)
	}
}

func TestButtonStyle(t *testing.T) {
	assert.Equal(t, discordgo.SecondaryButton, buttonStyle("secondary"))
	assert.Equal(t, discordgo.SuccessButton, buttonStyle("success"))
	assert.Equal(t, discordgo.DangerButton, buttonStyle("danger"))
	assert.Equal(t, discordgo.PrimaryButton, buttonStyle("primary"))
	assert.Equal(t, discordgo.PrimaryButton, buttonStyle("anything-else"))
}

func TestBuildPanelComponents_Chunking(t *testing.T) {
	var defs []model.ButtonDefinition
	for i := 0; i < 7; i++ {
		defs = append(defs, model.ButtonDefinition{
			Label:      string(rune('a' + i)),
			Style:      "primary",
			CategoryID: "cat1",
		})
	}

	rows := buildPanelComponents(defs)
	assert.Len(t, rows, 2)

	first := rows[0].(discordgo.ActionsRow)
	second := rows[1].(discordgo.ActionsRow)
	assert.Len(t, first.Components, 5)
	assert.Len(t, second.Components, 2)

	btn := first.Components[0].(discordgo.Button)
	assert.Equal(t, "a", btn.Label)
	assert.Equal(t, openButtonCustomID("cat1", "a"), btn.CustomID)
}

func TestBuildPanelComponents_Empty(t *testing.T) {
	assert.Empty(t, buildPanelComponents(nil))
}

func TestTicketControls_LabelsFromConfig(t *testing.T) {
	cfg := &model.GuildConfig{AcceptLabel: "Claim", CloseLabel: "Resolve"}
	rows := ticketControls(cfg)
	assert.Len(t, rows, 1)

	row := rows[0].(discordgo.ActionsRow)
	assert.Len(t, row.Components, 2)

	accept := row.Components[0].(discordgo.Button)
	assert.Equal(t, "Claim", accept.Label)
	assert.Equal(t, customIDAccept, accept.CustomID)

	closeBtn := row.Components[1].(discordgo.Button)
	assert.Equal(t, "Resolve", closeBtn.Label)
	assert.Equal(t, customIDClose, closeBtn.CustomID)
}

func TestRestoreButtonViews(t *testing.T) {
	h, _ := newTestHandler(t)

	support := model.ButtonDefinition{Label: "Support", Style: "primary", CategoryID: "cat1"}
	billing := model.ButtonDefinition{Label: "Billing", Style: "danger", CategoryID: "cat2"}
	assert.NoError(t, h.ds.AppendButton("guild1", "msg1", support))
	assert.NoError(t, h.ds.AppendButton("guild1", "msg2", billing))

	assert.False(t, h.registry.known(openButtonCustomID("cat1", "Support")))

	assert.NoError(t, h.restoreButtonViews("guild1"))

	// The restored registry carries exactly the persisted custom IDs, so
	// panels sent before a restart keep working.
	assert.True(t, h.registry.known(openButtonCustomID("cat1", "Support")))
	assert.True(t, h.registry.known(openButtonCustomID("cat2", "Billing")))
	assert.Len(t, h.registry.customIDs(), 2)
	assert.False(t, h.registry.known("ticket_open:cat3:Forged"))
}
