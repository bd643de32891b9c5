package handler

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/hxzem/ticket-control/domain/model"
)

const (
	customIDAccept     = "ticket_accept"
	customIDClose      = "ticket_close"
	customIDOpenPrefix = "ticket_open"
)

// openButtonCustomID builds the stable identifier for a ticket-open button.
// The scheme is what keeps panels sent before a restart clickable after it.
func openButtonCustomID(categoryID, label string) string {
	return fmt.Sprintf("%s:%s:%s", customIDOpenPrefix, categoryID, label)
}

func parseOpenCustomID(id string) (categoryID, label string, ok bool) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[0] != customIDOpenPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func buttonStyle(name string) discordgo.ButtonStyle {
	switch name {
	case "secondary":
		return discordgo.SecondaryButton
	case "success":
		return discordgo.SuccessButton
	case "danger":
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

// buildPanelComponents renders button definitions into action rows, five
// buttons per row (the platform's row limit).
func buildPanelComponents(defs []model.ButtonDefinition) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < len(defs); start += 5 {
		end := start + 5
		if end > len(defs) {
			end = len(defs)
		}
		row := discordgo.ActionsRow{}
		for _, def := range defs[start:end] {
			row.Components = append(row.Components, discordgo.Button{
				Label:    def.Label,
				Style:    buttonStyle(def.Style),
				CustomID: openButtonCustomID(def.CategoryID, def.Label),
			})
		}
		rows = append(rows, row)
	}
	return rows
}

// ticketControls is the in-ticket control row, with labels from config.
func ticketControls(cfg *model.GuildConfig) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    cfg.AcceptLabel,
					Style:    discordgo.SuccessButton,
					CustomID: customIDAccept,
				},
				discordgo.Button{
					Label:    cfg.CloseLabel,
					Style:    discordgo.DangerButton,
					CustomID: customIDClose,
				},
			},
		},
	}
}

// buttonRegistry is the live view of persisted button definitions: which
// custom IDs belong to which panel message. Presses are validated against
// it so forged component IDs don't open tickets.
type buttonRegistry struct {
	mu      sync.RWMutex
	buttons map[string]model.ButtonDefinition // custom ID -> definition
}

func newButtonRegistry() *buttonRegistry {
	return &buttonRegistry{buttons: map[string]model.ButtonDefinition{}}
}

func (r *buttonRegistry) register(def model.ButtonDefinition) string {
	id := openButtonCustomID(def.CategoryID, def.Label)
	r.mu.Lock()
	r.buttons[id] = def
	r.mu.Unlock()
	return id
}

func (r *buttonRegistry) known(customID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.buttons[customID]
	return ok
}

func (r *buttonRegistry) customIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.buttons))
	for id := range r.buttons {
		ids = append(ids, id)
	}
	return ids
}

// restoreButtonViews reloads persisted button definitions for a guild and
// re-registers their controls, so panels sent before a restart keep working.
func (h *Handler) restoreButtonViews(guildID string) error {
	set, err := h.ds.GetButtons(guildID)
	if err != nil {
		return fmt.Errorf("GetButtons failed: %w", err)
	}
	count := 0
	for _, defs := range set {
		for _, def := range defs {
			h.registry.register(def)
			count++
		}
	}
	if count > 0 {
		slog.Info("restored button views", slog.String("guild_id", guildID), slog.Int("buttons", count))
	}
	return nil
}
