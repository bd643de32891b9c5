package infra

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hxzem/ticket-control/domain/model"
)

func newTestDB(t *testing.T) *Store {
	t.Helper()
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "test.db"))
	ds, err := NewDataBase()
	assert.NoError(t, err)
	return ds
}

func TestDataBase_DocumentRoundTrip(t *testing.T) {
	ds := newTestDB(t)

	assert.NoError(t, ds.SaveTicket(&model.Ticket{GuildID: "guild1", ChannelID: "chan1", OwnerID: "owner"}))
	assert.NoError(t, ds.AppendButton("guild1", "msg1", model.ButtonDefinition{Label: "Support", Style: "primary", CategoryID: "cat1"}))

	ticket, err := ds.GetTicket("guild1", "chan1")
	assert.NoError(t, err)
	assert.NotNil(t, ticket)
	assert.Equal(t, "owner", ticket.OwnerID)

	set, err := ds.GetButtons("guild1")
	assert.NoError(t, err)
	assert.Len(t, set["msg1"], 1)
}

func TestDataBase_DefaultsWhenEmpty(t *testing.T) {
	ds := newTestDB(t)

	cfg, err := ds.GetConfig("guild1")
	assert.NoError(t, err)
	assert.Equal(t, "Accept", cfg.AcceptLabel)

	ticket, err := ds.GetTicket("guild1", "chan1")
	assert.NoError(t, err)
	assert.Nil(t, ticket)
}

func TestDataBase_OverwriteKeepsSingleRow(t *testing.T) {
	ds := newTestDB(t)

	assert.NoError(t, ds.SaveConfig("guild1", &model.GuildConfig{AcceptLabel: "Claim", CloseLabel: "Done", ReceiptMessage: "hi"}))
	assert.NoError(t, ds.SaveConfig("guild1", &model.GuildConfig{AcceptLabel: "Take", CloseLabel: "Done", ReceiptMessage: "hi"}))

	cfg, err := ds.GetConfig("guild1")
	assert.NoError(t, err)
	assert.Equal(t, "Take", cfg.AcceptLabel)
}
