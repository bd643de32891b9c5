package handler

import (
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/hxzem/ticket-control/domain/model"
)

// topRoleBypassCount is the number of highest-ranked guild roles whose
// holders pass command-level gating without an explicit grant.
const topRoleBypassCount = 10

// Actor is the acting member as seen by the policy: id, roles and the
// permissions already computed by the platform for the invoking channel.
type Actor struct {
	ID          string
	RoleIDs     []string
	Permissions int64
}

func actorFromInteraction(i *discordgo.InteractionCreate) Actor {
	if i.Member == nil {
		return Actor{}
	}
	return Actor{
		ID:          i.Member.User.ID,
		RoleIDs:     i.Member.Roles,
		Permissions: i.Member.Permissions,
	}
}

func (a Actor) isAdmin() bool {
	return a.Permissions&discordgo.PermissionAdministrator != 0
}

func (a Actor) canManageChannels() bool {
	return a.isAdmin() || a.Permissions&discordgo.PermissionManageChannels != 0
}

type ticketAction int

const (
	actionAccept ticketAction = iota
	actionRename
	actionTransfer
	actionClose
)

// authorizeTicketAction is the pure decision function for administrative
// ticket actions. Checked before any store mutation; a rejection means no
// state changed.
func authorizeTicketAction(actor Actor, t *model.Ticket, action ticketAction) bool {
	switch action {
	case actionAccept:
		// Any non-owner may claim, including re-claiming over a previous
		// handler. The owner can never act as their own handler.
		return actor.ID != t.OwnerID
	case actionRename, actionTransfer, actionClose:
		if actor.canManageChannels() {
			return true
		}
		return t.Claimed() && actor.ID == t.HandlerID && actor.ID != t.OwnerID
	default:
		return false
	}
}

// hasCommandPermission gates commands that are not tied to a specific
// ticket: administrators, holders of one of the guild's highest-ranked
// roles, and roles explicitly granted for the command all pass.
func (h *Handler) hasCommandPermission(guildID string, actor Actor, command string) (bool, error) {
	if actor.isAdmin() {
		return true, nil
	}

	top, err := h.topRoleIDs(guildID, topRoleBypassCount)
	if err != nil {
		return false, err
	}
	for _, id := range actor.RoleIDs {
		if slices.Contains(top, id) {
			return true, nil
		}
	}

	allowed, err := h.ds.GetCommandRoles(guildID, command)
	if err != nil {
		return false, err
	}
	for _, id := range actor.RoleIDs {
		if slices.Contains(allowed, id) {
			return true, nil
		}
	}
	return false, nil
}
