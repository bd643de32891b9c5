package handler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/hxzem/ticket-control/domain/model"
)

func (h *Handler) requireCommandPermission(i *discordgo.InteractionCreate, command string) bool {
	actor := actorFromInteraction(i)
	ok, err := h.hasCommandPermission(i.GuildID, actor, command)
	if err != nil {
		slog.Error("hasCommandPermission failed", slog.String("command", command), slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Something went wrong, please try again.")
		return false
	}
	if !ok {
		h.respondEphemeral(i.Interaction, "You do not have permission to use this command.")
		return false
	}
	return true
}

func (h *Handler) handleScammer(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !h.requireCommandPermission(i, "scammer") {
		return
	}

	opts := optionMap(data.Options)
	memberOpt, okMember := opts["member"]
	storyOpt, okStory := opts["story"]
	proofOpt, okProof := opts["proof"]
	if !okMember || !okStory || !okProof {
		h.respondEphemeral(i.Interaction, "Member, story and proof are all required.")
		return
	}

	member := memberOpt.UserValue(nil)
	attachmentID, _ := proofOpt.Value.(string)
	attachment, ok := data.Resolved.Attachments[attachmentID]
	if !ok {
		h.respondEphemeral(i.Interaction, "The proof attachment could not be read.")
		return
	}

	report := model.Report{
		ReportedBy: actorFromInteraction(i).ID,
		ScammerID:  member.ID,
		Story:      storyOpt.StringValue(),
		ProofURL:   attachment.URL,
		CreatedAt:  time.Now(),
	}
	if err := h.ds.AppendReport(i.GuildID, report); err != nil {
		slog.Error("AppendReport failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Could not save the report, please try again.")
		return
	}

	h.respondEphemeral(i.Interaction, fmt.Sprintf("Report against <@%s> has been filed.", member.ID))
}

func (h *Handler) handleOppressed(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !h.requireCommandPermission(i, "oppressed") {
		return
	}

	opts := optionMap(data.Options)
	memberOpt, okMember := opts["member"]
	numberOpt, okNumber := opts["report_number"]
	if !okMember || !okNumber {
		h.respondEphemeral(i.Interaction, "Member and report number are required.")
		return
	}
	member := memberOpt.UserValue(nil)
	number := int(numberOpt.IntValue())

	reports, err := h.ds.ListReports(i.GuildID)
	if err != nil {
		slog.Error("ListReports failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Could not load the reports, please try again.")
		return
	}

	// The report number is 1-based within the reports filed against this
	// member, matching what /dtr shows.
	var matched []int
	for idx, r := range reports {
		if r.ScammerID == member.ID {
			matched = append(matched, idx)
		}
	}
	if number < 1 || number > len(matched) {
		h.respondEphemeral(i.Interaction, "Invalid report number.")
		return
	}

	target := matched[number-1]
	reports = append(reports[:target], reports[target+1:]...)
	if err := h.ds.SaveReports(i.GuildID, reports); err != nil {
		slog.Error("SaveReports failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Could not delete the report, please try again.")
		return
	}

	h.respondEphemeral(i.Interaction, fmt.Sprintf("Report #%d against <@%s> has been deleted.", number, member.ID))
}

func (h *Handler) handleRestart(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !h.requireCommandPermission(i, "restart") {
		return
	}

	opts := optionMap(data.Options)
	memberOpt, ok := opts["member"]
	if !ok {
		h.respondEphemeral(i.Interaction, "A member is required.")
		return
	}
	member := memberOpt.UserValue(nil)

	reports, err := h.ds.ListReports(i.GuildID)
	if err != nil {
		slog.Error("ListReports failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Could not load the reports, please try again.")
		return
	}

	kept := reports[:0:0]
	for _, r := range reports {
		if r.ScammerID != member.ID {
			kept = append(kept, r)
		}
	}
	deleted := len(reports) - len(kept)
	if err := h.ds.SaveReports(i.GuildID, kept); err != nil {
		slog.Error("SaveReports failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Could not delete the reports, please try again.")
		return
	}

	h.respondEphemeral(i.Interaction, fmt.Sprintf("Deleted %d report(s) against <@%s>.", deleted, member.ID))
}

func (h *Handler) handleDTR(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := optionMap(data.Options)
	memberOpt, ok := opts["member"]
	if !ok {
		h.respondEphemeral(i.Interaction, "A member is required.")
		return
	}
	member := memberOpt.UserValue(nil)

	reports, err := h.ds.ListReports(i.GuildID)
	if err != nil {
		slog.Error("ListReports failed", slog.Any("err", err))
		h.respondEphemeral(i.Interaction, "Could not load the reports, please try again.")
		return
	}

	var embeds []*discordgo.MessageEmbed
	n := 0
	for _, r := range reports {
		if r.ScammerID != member.ID {
			continue
		}
		n++
		embeds = append(embeds, &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("Report #%d", n),
			Description: fmt.Sprintf("Reported by: <@%s>\nStory: %s", r.ReportedBy, r.Story),
			Color:       0xED4245,
			Image:       &discordgo.MessageEmbedImage{URL: r.ProofURL},
		})
	}

	if len(embeds) == 0 {
		h.respondEphemeral(i.Interaction, fmt.Sprintf("No reports against <@%s>.", member.ID))
		return
	}

	// The first batch rides the interaction response, the rest follow up
	// (ten embeds per message is the platform limit).
	first := embeds
	if len(first) > 10 {
		first = first[:10]
	}
	if err := h.client.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: first},
	}); err != nil {
		slog.Error("InteractionRespond failed", slog.Any("err", err))
		return
	}
	for start := 10; start < len(embeds); start += 10 {
		end := start + 10
		if end > len(embeds) {
			end = len(embeds)
		}
		if _, err := h.client.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
			Embeds: embeds[start:end],
		}); err != nil {
			slog.Error("FollowupMessageCreate failed", slog.Any("err", err))
			return
		}
	}
}
