package handler

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"

	"github.com/hxzem/ticket-control/domain/model"
)

func TestAuthorizeTicketAction(t *testing.T) {
	owner := Actor{ID: "owner"}
	handler := Actor{ID: "handler"}
	stranger := Actor{ID: "stranger"}
	staff := Actor{ID: "staff", Permissions: discordgo.PermissionManageChannels}
	admin := Actor{ID: "admin", Permissions: discordgo.PermissionAdministrator}

	claimed := &model.Ticket{ChannelID: "chan1", GuildID: "guild1", OwnerID: "owner", HandlerID: "handler"}
	unclaimed := &model.Ticket{ChannelID: "chan1", GuildID: "guild1", OwnerID: "owner"}

	tests := []struct {
		name   string
		actor  Actor
		ticket *model.Ticket
		action ticketAction
		want   bool
	}{
		{"owner cannot accept own ticket", owner, unclaimed, actionAccept, false},
		{"any non-owner can accept", stranger, unclaimed, actionAccept, true},
		{"non-owner can re-accept a claimed ticket", stranger, claimed, actionAccept, true},
		{"owner cannot accept even with admin", Actor{ID: "owner", Permissions: discordgo.PermissionAdministrator}, unclaimed, actionAccept, false},

		{"handler can rename", handler, claimed, actionRename, true},
		{"handler can transfer", handler, claimed, actionTransfer, true},
		{"handler can close", handler, claimed, actionClose, true},
		{"stranger cannot close", stranger, claimed, actionClose, false},
		{"stranger cannot rename", stranger, claimed, actionRename, false},
		{"staff can close without being handler", staff, claimed, actionClose, true},
		{"admin can close without being handler", admin, claimed, actionClose, true},
		{"owner cannot close own ticket", owner, claimed, actionClose, false},
		{"nobody but staff can close an unclaimed ticket", stranger, unclaimed, actionClose, false},
		{"staff can close an unclaimed ticket", staff, unclaimed, actionClose, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authorizeTicketAction(tt.actor, tt.ticket, tt.action))
		})
	}
}

func TestHasCommandPermission_Admin(t *testing.T) {
	h, _ := newTestHandler(t)

	// Admins pass without any role lookup; no API expectations are set.
	ok, err := h.hasCommandPermission("guild1", Actor{ID: "u1", Permissions: discordgo.PermissionAdministrator}, "scammer")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestHasCommandPermission_TopRoles(t *testing.T) {
	h, client := newTestHandler(t)

	// Twelve roles; only the ten highest positions bypass the grant check.
	var roles []*discordgo.Role
	for p := 1; p <= 12; p++ {
		roles = append(roles, &discordgo.Role{ID: fmt.Sprintf("role%d", p), Position: p})
	}
	client.EXPECT().GuildRoles("guild1").Return(roles, nil).Times(1)

	ok, err := h.hasCommandPermission("guild1", Actor{ID: "u1", RoleIDs: []string{"role12"}}, "scammer")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.hasCommandPermission("guild1", Actor{ID: "u2", RoleIDs: []string{"role3"}}, "scammer")
	assert.NoError(t, err)
	assert.True(t, ok)

	// Position 2 and 1 fall outside the top ten.
	ok, err = h.hasCommandPermission("guild1", Actor{ID: "u3", RoleIDs: []string{"role2"}}, "scammer")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestHasCommandPermission_GrantedRole(t *testing.T) {
	h, client := newTestHandler(t)

	roles := []*discordgo.Role{
		{ID: "high", Position: 2},
		{ID: "low", Position: 1},
	}
	client.EXPECT().GuildRoles("guild1").Return(roles, nil).AnyTimes()

	ok, err := h.hasCommandPermission("guild1", Actor{ID: "u1", RoleIDs: []string{"granted"}}, "scammer")
	assert.NoError(t, err)
	// With twelve or fewer roles everyone holding one is in the top ten, so
	// use a role the guild does not rank at all.
	assert.False(t, ok)

	assert.NoError(t, h.ds.SetCommandRoles("guild1", "scammer", []string{"granted"}))
	ok, err = h.hasCommandPermission("guild1", Actor{ID: "u1", RoleIDs: []string{"granted"}}, "scammer")
	assert.NoError(t, err)
	assert.True(t, ok)

	// The grant is per command.
	ok, err = h.hasCommandPermission("guild1", Actor{ID: "u1", RoleIDs: []string{"granted"}}, "restart")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestActorFromInteraction(t *testing.T) {
	i := testInteraction("guild1", "chan1", "u1", discordgo.PermissionManageChannels, "r1", "r2")
	actor := actorFromInteraction(i)
	assert.Equal(t, "u1", actor.ID)
	assert.Equal(t, []string{"r1", "r2"}, actor.RoleIDs)
	assert.True(t, actor.canManageChannels())
	assert.False(t, actor.isAdmin())

	// Interactions without a member (DMs) resolve to an empty actor.
	empty := actorFromInteraction(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}})
	assert.Empty(t, empty.ID)
}
