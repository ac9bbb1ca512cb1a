package template

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/models"

	"github.com/google/uuid"
)

const defaultPageSize = 25

// Store holds message templates and their review lifecycle. Lookup identity
// is the (name, language, wabaId) triple; the storage key is the opaque id.
type Store struct {
	mu        sync.RWMutex
	templates map[string]*models.MessageTemplate
	now       func() time.Time
}

// NewStore creates an empty template store
func NewStore() *Store {
	return &Store{
		templates: make(map[string]*models.MessageTemplate),
		now:       time.Now,
	}
}

// CreateParams carries a template creation request. Text can arrive as flat
// fields, structured components, or both; whichever is supplied, the other
// representation is synthesized so both are always populated together.
type CreateParams struct {
	Name         string
	LanguageCode string
	Category     string
	WabaID       string
	BodyText     string
	HeaderText   string
	FooterText   string
	Components   []models.TemplateComponent
}

// Create adds a template in PENDING state with its first audit entry
func (s *Store) Create(params CreateParams) (*models.MessageTemplate, error) {
	if params.Name == "" {
		return nil, errors.NewValidationError("name", "template name is required")
	}
	if params.LanguageCode == "" {
		return nil, errors.NewValidationError("language_code", "language code is required")
	}

	body, header, footer, components, err := normalizeContent(params)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.findByTripleLocked(params.Name, params.LanguageCode, params.WabaID); existing != nil {
		return nil, errors.NewValidationError("name",
			"a template with this name, language, and waba already exists")
	}

	now := s.now()
	tmpl := &models.MessageTemplate{
		ID:           uuid.NewString(),
		Name:         params.Name,
		LanguageCode: params.LanguageCode,
		Category:     params.Category,
		BodyText:     body,
		HeaderText:   header,
		FooterText:   footer,
		Components:   components,
		WabaID:       params.WabaID,
		Status:       models.TemplatePending,
		StatusHistory: []models.TemplateStatusChange{
			{Status: models.TemplatePending, UpdatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.templates[tmpl.ID] = tmpl

	return copyTemplate(tmpl), nil
}

// normalizeContent synthesizes flat text fields and structured components
// from whichever representation was supplied. A BODY with non-empty text is
// mandatory either way.
func normalizeContent(params CreateParams) (body, header, footer string, components []models.TemplateComponent, err error) {
	if len(params.Components) > 0 {
		for _, comp := range params.Components {
			switch strings.ToUpper(comp.Type) {
			case models.ComponentBody:
				body = comp.Text
			case models.ComponentHeader:
				header = comp.Text
			case models.ComponentFooter:
				footer = comp.Text
			}
		}
		if strings.TrimSpace(body) == "" {
			return "", "", "", nil, errors.NewValidationError("components", "a BODY component with non-empty text is required")
		}
		components = make([]models.TemplateComponent, len(params.Components))
		copy(components, params.Components)
		return body, header, footer, components, nil
	}

	body = params.BodyText
	header = params.HeaderText
	footer = params.FooterText
	if strings.TrimSpace(body) == "" {
		return "", "", "", nil, errors.NewValidationError("body_text", "body text is required")
	}

	if header != "" {
		components = append(components, models.TemplateComponent{
			Type:   models.ComponentHeader,
			Format: "TEXT",
			Text:   header,
		})
	}
	components = append(components, models.TemplateComponent{
		Type: models.ComponentBody,
		Text: body,
	})
	if footer != "" {
		components = append(components, models.TemplateComponent{
			Type: models.ComponentFooter,
			Text: footer,
		})
	}
	return body, header, footer, components, nil
}

// Get returns a template by storage id
func (s *Store) Get(id string) (*models.MessageTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmpl, ok := s.templates[id]
	if !ok {
		return nil, errors.NewNotFoundError("template", id)
	}
	return copyTemplate(tmpl), nil
}

// GetByTriple returns a template by its lookup identity
func (s *Store) GetByTriple(name, languageCode, wabaID string) (*models.MessageTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmpl := s.findByTripleLocked(name, languageCode, wabaID)
	if tmpl == nil {
		return nil, errors.NewNotFoundError("template", name+"/"+languageCode)
	}
	return copyTemplate(tmpl), nil
}

func (s *Store) findByTripleLocked(name, languageCode, wabaID string) *models.MessageTemplate {
	for _, tmpl := range s.templates {
		if tmpl.Name == name && tmpl.LanguageCode == languageCode && tmpl.WabaID == wabaID {
			return tmpl
		}
	}
	return nil
}

// UpdateStatusParams carries a lifecycle transition
type UpdateStatusParams struct {
	ID     string
	Status models.TemplateStatus
	Reason models.RejectionReason
	Note   string
}

// UpdateStatus sets a template's lifecycle state. There is no enforced
// transition table; every change appends an audit entry, and the rejection
// fields mirror the most recent change.
func (s *Store) UpdateStatus(params UpdateStatusParams) (*models.MessageTemplate, error) {
	if !models.ValidTemplateStatus(params.Status) {
		return nil, errors.NewValidationError("status", "unknown template status")
	}
	if params.Reason != "" && !models.ValidRejectionReason(params.Reason) {
		return nil, errors.NewValidationError("reason", "unknown rejection reason")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmpl, ok := s.templates[params.ID]
	if !ok {
		return nil, errors.NewNotFoundError("template", params.ID)
	}

	now := s.now()
	tmpl.Status = params.Status
	tmpl.RejectionReason = params.Reason
	tmpl.RejectionNote = params.Note
	tmpl.UpdatedAt = now
	tmpl.StatusHistory = append(tmpl.StatusHistory, models.TemplateStatusChange{
		Status:    params.Status,
		Reason:    params.Reason,
		Note:      params.Note,
		UpdatedAt: now,
	})

	return copyTemplate(tmpl), nil
}

// Delete removes a template
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[id]; !ok {
		return errors.NewNotFoundError("template", id)
	}
	delete(s.templates, id)
	return nil
}

// IsApproved reports whether the (name, language, waba) triple resolves to
// an APPROVED template. Used as the send-evaluation gate.
func (s *Store) IsApproved(name, languageCode, wabaID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmpl := s.findByTripleLocked(name, languageCode, wabaID)
	if tmpl == nil {
		return false, errors.NewNotFoundError("template", name+"/"+languageCode)
	}
	return tmpl.Status == models.TemplateApproved, nil
}

// ListParams carries a template list query
type ListParams struct {
	Filter    models.TemplateFilter
	Ascending bool
	Limit     int
	Before    string
	After     string
}

// List returns a cursor-delimited window over the filtered templates,
// ordered by last-updated time
func (s *Store) List(params ListParams) (*models.TemplatePage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.MessageTemplate, 0, len(s.templates))
	for _, tmpl := range s.templates {
		if matchesFilter(tmpl, params.Filter) {
			matched = append(matched, tmpl)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		ti, tj := matched[i], matched[j]
		if ti.UpdatedAt.Equal(tj.UpdatedAt) {
			if params.Ascending {
				return ti.ID < tj.ID
			}
			return ti.ID > tj.ID
		}
		if params.Ascending {
			return ti.UpdatedAt.Before(tj.UpdatedAt)
		}
		return ti.UpdatedAt.After(tj.UpdatedAt)
	})

	window, err := sliceWindow(matched, params)
	if err != nil {
		return nil, err
	}

	page := &models.TemplatePage{
		Templates: make([]*models.MessageTemplate, 0, len(window)),
		Total:     len(matched),
	}
	for _, tmpl := range window {
		page.Templates = append(page.Templates, copyTemplate(tmpl))
	}
	if len(window) > 0 {
		page.Before = window[0].ID
		page.After = window[len(window)-1].ID
	}
	if len(window) < len(matched) {
		page.HasMore = true
	}
	return page, nil
}

// sliceWindow applies the opaque before/after cursors and limit to the
// sorted list
func sliceWindow(sorted []*models.MessageTemplate, params ListParams) ([]*models.MessageTemplate, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	indexOf := func(id string) (int, error) {
		for i, tmpl := range sorted {
			if tmpl.ID == id {
				return i, nil
			}
		}
		return 0, errors.NewValidationError("cursor", "cursor does not reference a listed template")
	}

	start, end := 0, len(sorted)
	switch {
	case params.After != "":
		idx, err := indexOf(params.After)
		if err != nil {
			return nil, err
		}
		start = idx + 1
		if start+limit < end {
			end = start + limit
		}
	case params.Before != "":
		idx, err := indexOf(params.Before)
		if err != nil {
			return nil, err
		}
		end = idx
		if end-limit > 0 {
			start = end - limit
		}
	default:
		if limit < end {
			end = limit
		}
	}

	if start > end {
		start = end
	}
	return sorted[start:end], nil
}

func matchesFilter(tmpl *models.MessageTemplate, filter models.TemplateFilter) bool {
	if filter.Name != "" && tmpl.Name != filter.Name {
		return false
	}
	if filter.LanguageCode != "" && tmpl.LanguageCode != filter.LanguageCode {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, tmpl.Status) {
		return false
	}
	if len(filter.Categories) > 0 && !containsString(filter.Categories, tmpl.Category) {
		return false
	}
	if len(filter.RejectionReasons) > 0 && !containsReason(filter.RejectionReasons, tmpl.RejectionReason) {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		haystacks := []string{tmpl.Name, tmpl.BodyText, tmpl.HeaderText, tmpl.FooterText}
		found := false
		for _, hay := range haystacks {
			if strings.Contains(strings.ToLower(hay), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsStatus(set []models.TemplateStatus, status models.TemplateStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func containsString(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}

func containsReason(set []models.RejectionReason, reason models.RejectionReason) bool {
	for _, r := range set {
		if r == reason {
			return true
		}
	}
	return false
}

func copyTemplate(tmpl *models.MessageTemplate) *models.MessageTemplate {
	copied := *tmpl
	copied.Components = make([]models.TemplateComponent, len(tmpl.Components))
	copy(copied.Components, tmpl.Components)
	copied.StatusHistory = make([]models.TemplateStatusChange, len(tmpl.StatusHistory))
	copy(copied.StatusHistory, tmpl.StatusHistory)
	return &copied
}
