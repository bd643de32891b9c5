package handler

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jellydator/ttlcache/v3"

	"github.com/hxzem/ticket-control/domain/infra"
)

type Handler struct {
	client    infra.DiscordAPI
	session   *discordgo.Session
	ds        infra.Datastore
	roleCache *ttlcache.Cache[string, []*discordgo.Role]
	registry  *buttonRegistry
	ticketMu  *keyedMutex
}

func NewHandler() (*Handler, error) {
	var ds infra.Datastore
	var err error
	switch os.Getenv("DB_DRIVER") {
	case "dynamodb":
		ds, err = infra.NewDynamoDB()
	case "sqlite":
		ds, err = infra.NewDataBase()
	default:
		ds, err = infra.NewFileStore()
	}
	if err != nil {
		return nil, err
	}

	session, err := discordgo.New("Bot " + os.Getenv("DISCORD_TOKEN"))
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildMessages

	h := &Handler{
		client:    session,
		session:   session,
		ds:        ds,
		roleCache: ttlcache.New(ttlcache.WithTTL[string, []*discordgo.Role](time.Hour)),
		registry:  newButtonRegistry(),
		ticketMu:  newKeyedMutex(),
	}
	go h.roleCache.Start()
	return h, nil
}

// Handle connects to the gateway, registers the slash commands and blocks
// until the process is signalled to stop.
func (h *Handler) Handle() error {
	h.session.AddHandler(h.onReady)
	h.session.AddHandler(h.onGuildCreate)
	h.session.AddHandler(h.onInteractionCreate)

	if err := h.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway session: %w", err)
	}
	defer h.session.Close()

	appID := h.session.State.User.ID
	if _, err := h.client.ApplicationCommandBulkOverwrite(appID, "", commandDefinitions()); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	return nil
}

func (h *Handler) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	slog.Info("gateway ready", slog.String("user", r.User.Username), slog.Int("guilds", len(r.Guilds)))
}

func (h *Handler) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if err := h.restoreButtonViews(g.ID); err != nil {
		slog.Error("restoreButtonViews failed", slog.String("guild_id", g.ID), slog.Any("err", err))
	}
}

func (h *Handler) onInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	// A handler failure must never take other in-flight events down with it.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("interaction handler panicked", slog.Any("panic", r))
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.handleCommand(i)
	case discordgo.InteractionMessageComponent:
		h.handleComponent(i)
	}
}

func (h *Handler) handleCommand(i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	switch data.Name {
	case "role":
		h.handleRoleCommand(i, data)
	case "scammer":
		h.handleScammer(i, data)
	case "oppressed":
		h.handleOppressed(i, data)
	case "restart":
		h.handleRestart(i, data)
	case "dtr":
		h.handleDTR(i, data)
	case "ticket-config":
		h.handleTicketConfig(i, data)
	case "category-message":
		h.handleCategoryMessage(i, data)
	case "new-ticket":
		h.handleNewTicket(i, data)
	case "add-button":
		h.handleAddButton(i, data)
	case "accept":
		h.acceptTicket(i)
	case "rename":
		h.renameTicket(i, data)
	case "transfer":
		h.transferTicket(i, data)
	case "close":
		h.closeTicket(i)
	default:
		slog.Warn("unknown command", slog.String("name", data.Name))
	}
}

func (h *Handler) handleComponent(i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	switch customID {
	case customIDAccept:
		h.acceptTicket(i)
	case customIDClose:
		h.closeTicket(i)
	default:
		categoryID, label, ok := parseOpenCustomID(customID)
		if !ok {
			slog.Warn("unknown component", slog.String("custom_id", customID))
			return
		}
		h.openTicket(i, categoryID, label)
	}
}

// guildRoles returns the guild's role list, cached for an hour.
func (h *Handler) guildRoles(guildID string) ([]*discordgo.Role, error) {
	if roles := h.roleCache.Get(guildID); roles != nil {
		return roles.Value(), nil
	}
	roles, err := h.client.GuildRoles(guildID)
	if err != nil {
		return nil, err
	}
	h.roleCache.Set(guildID, roles, ttlcache.DefaultTTL)
	return roles, nil
}

// topRoleIDs returns the IDs of the n highest-ranked roles in the guild.
func (h *Handler) topRoleIDs(guildID string, n int) ([]string, error) {
	roles, err := h.guildRoles(guildID)
	if err != nil {
		return nil, err
	}
	sorted := append([]*discordgo.Role(nil), roles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position > sorted[j].Position })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	ids := make([]string, 0, len(sorted))
	for _, r := range sorted {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (h *Handler) respondEphemeral(i *discordgo.Interaction, msg string) {
	err := h.client.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Error("InteractionRespond failed", slog.Any("err", err))
	}
}

func (h *Handler) respond(i *discordgo.Interaction, msg string) {
	err := h.client.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: msg},
	})
	if err != nil {
		slog.Error("InteractionRespond failed", slog.Any("err", err))
	}
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

// keyedMutex serializes ticket transitions per channel so two events on the
// same ticket never interleave their read-modify-write sequences.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*sync.Mutex{}}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}
