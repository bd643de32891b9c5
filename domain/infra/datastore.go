package infra

import (
	"fmt"
	"sync"

	"github.com/hxzem/ticket-control/domain/model"
)

// Datastore is the persistence contract for all record families. Every
// accessor materializes missing records from their default shape instead of
// failing, and every mutation is a single atomic read-then-write from the
// caller's point of view.
type Datastore interface {
	GetConfig(guildID string) (*model.GuildConfig, error)
	SaveConfig(guildID string, cfg *model.GuildConfig) error

	GetButtons(guildID string) (model.ButtonSet, error)
	AppendButton(guildID, messageID string, def model.ButtonDefinition) error

	GetTicket(guildID, channelID string) (*model.Ticket, error)
	SaveTicket(t *model.Ticket) error
	DeleteTicket(guildID, channelID string) error

	GetCategoryMessage(guildID, categoryID string) (*model.CategoryMessage, error)
	SaveCategoryMessage(guildID, categoryID string, msg *model.CategoryMessage) error
	DeleteCategoryMessage(guildID, categoryID string) error

	ListReports(guildID string) ([]model.Report, error)
	SaveReports(guildID string, reports []model.Report) error
	AppendReport(guildID string, r model.Report) error

	GetCommandRoles(guildID, command string) ([]string, error)
	SetCommandRoles(guildID, command string, roleIDs []string) error
}

// guildDocument is everything persisted for one guild.
type guildDocument struct {
	Config      *model.GuildConfig               `json:"config,omitempty"`
	Buttons     model.ButtonSet                  `json:"buttons"`
	Tickets     map[string]model.Ticket          `json:"tickets"`
	Categories  map[string]model.CategoryMessage `json:"categories"`
	Reports     []model.Report                   `json:"reports"`
	Permissions map[string][]string              `json:"permissions"`
}

func newGuildDocument() *guildDocument {
	return &guildDocument{
		Buttons:     model.ButtonSet{},
		Tickets:     map[string]model.Ticket{},
		Categories:  map[string]model.CategoryMessage{},
		Reports:     []model.Report{},
		Permissions: map[string][]string{},
	}
}

// normalize fills nil maps left behind by older documents.
func (d *guildDocument) normalize() {
	if d.Buttons == nil {
		d.Buttons = model.ButtonSet{}
	}
	if d.Tickets == nil {
		d.Tickets = map[string]model.Ticket{}
	}
	if d.Categories == nil {
		d.Categories = map[string]model.CategoryMessage{}
	}
	if d.Permissions == nil {
		d.Permissions = map[string][]string{}
	}
}

// docBackend loads and saves whole guild documents. loadDocument returns a
// fresh default document when nothing is stored yet.
type docBackend interface {
	loadDocument(guildID string) (*guildDocument, error)
	saveDocument(guildID string, doc *guildDocument) error
}

// Store implements Datastore over any docBackend. The mutex makes each
// read-modify-write of a guild document a critical section, so concurrent
// event handlers never interleave around a partially applied mutation.
type Store struct {
	backend docBackend
	mu      sync.Mutex
}

var _ Datastore = (*Store)(nil)

func (s *Store) GetConfig(guildID string) (*model.GuildConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.backend.loadDocument(guildID)
	if err != nil {
		return nil, err
	}
	if doc.Config == nil {
		return model.DefaultGuildConfig(), nil
	}
	cfg := *doc.Config
	return &cfg, nil
}

func (s *Store) SaveConfig(guildID string, cfg *model.GuildConfig) error {
	return s.update(guildID, func(doc *guildDocument) error {
		c := *cfg
		doc.Config = &c
		return nil
	})
}

func (s *Store) GetButtons(guildID string) (model.ButtonSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.backend.loadDocument(guildID)
	if err != nil {
		return nil, err
	}
	set := model.ButtonSet{}
	for id, defs := range doc.Buttons {
		set[id] = append([]model.ButtonDefinition(nil), defs...)
	}
	return set, nil
}

func (s *Store) AppendButton(guildID, messageID string, def model.ButtonDefinition) error {
	return s.update(guildID, func(doc *guildDocument) error {
		doc.Buttons[messageID] = append(doc.Buttons[messageID], def)
		return nil
	})
}

func (s *Store) GetTicket(guildID, channelID string) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.backend.loadDocument(guildID)
	if err != nil {
		return nil, err
	}
	t, ok := doc.Tickets[channelID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) SaveTicket(t *model.Ticket) error {
	if t.GuildID == "" || t.ChannelID == "" {
		return fmt.Errorf("%w: ticket is missing guild or channel id", model.ErrValidation)
	}
	return s.update(t.GuildID, func(doc *guildDocument) error {
		doc.Tickets[t.ChannelID] = *t
		return nil
	})
}

func (s *Store) DeleteTicket(guildID, channelID string) error {
	return s.update(guildID, func(doc *guildDocument) error {
		delete(doc.Tickets, channelID)
		return nil
	})
}

func (s *Store) GetCategoryMessage(guildID, categoryID string) (*model.CategoryMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.backend.loadDocument(guildID)
	if err != nil {
		return nil, err
	}
	m, ok := doc.Categories[categoryID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *Store) SaveCategoryMessage(guildID, categoryID string, msg *model.CategoryMessage) error {
	return s.update(guildID, func(doc *guildDocument) error {
		doc.Categories[categoryID] = *msg
		return nil
	})
}

func (s *Store) DeleteCategoryMessage(guildID, categoryID string) error {
	return s.update(guildID, func(doc *guildDocument) error {
		delete(doc.Categories, categoryID)
		return nil
	})
}

func (s *Store) ListReports(guildID string) ([]model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.backend.loadDocument(guildID)
	if err != nil {
		return nil, err
	}
	return append([]model.Report(nil), doc.Reports...), nil
}

func (s *Store) SaveReports(guildID string, reports []model.Report) error {
	return s.update(guildID, func(doc *guildDocument) error {
		doc.Reports = append([]model.Report(nil), reports...)
		return nil
	})
}

func (s *Store) AppendReport(guildID string, r model.Report) error {
	return s.update(guildID, func(doc *guildDocument) error {
		doc.Reports = append(doc.Reports, r)
		return nil
	})
}

func (s *Store) GetCommandRoles(guildID, command string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.backend.loadDocument(guildID)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), doc.Permissions[command]...), nil
}

func (s *Store) SetCommandRoles(guildID, command string, roleIDs []string) error {
	return s.update(guildID, func(doc *guildDocument) error {
		if len(roleIDs) == 0 {
			delete(doc.Permissions, command)
			return nil
		}
		doc.Permissions[command] = append([]string(nil), roleIDs...)
		return nil
	})
}

func (s *Store) update(guildID string, fn func(*guildDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.backend.loadDocument(guildID)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.backend.saveDocument(guildID, doc)
}
