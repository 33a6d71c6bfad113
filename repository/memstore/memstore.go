// Package memstore implements the repository store interfaces in process
// memory. It backs database.driver=memory for offline development and the
// handler tests; nothing survives a restart.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"visar-backend/models"
	"visar-backend/repository"

	"github.com/google/uuid"
)

var (
	_ repository.ClientStore       = (*ClientStore)(nil)
	_ repository.ReferenceStore    = (*ReferenceStore)(nil)
	_ repository.TemplateStore     = (*TemplateStore)(nil)
	_ repository.ConversationStore = (*ConversationStore)(nil)
	_ repository.PetitionStore     = (*PetitionStore)(nil)
	_ repository.JobStore          = (*JobStore)(nil)
	_ repository.CaseDocumentStore = (*CaseDocumentStore)(nil)
)

func newID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// ClientStore keeps clients in memory
type ClientStore struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]models.Client
}

func NewClientStore() *ClientStore {
	return &ClientStore{clients: make(map[uuid.UUID]models.Client)}
}

func (s *ClientStore) Create(ctx context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = newID(c.ID)
	if _, exists := s.clients[c.ID]; exists {
		return repository.ErrConflict
	}
	if c.Status == "" {
		c.Status = models.ClientStatusActive
	}
	c.CreatedAt = time.Now().UTC()
	s.clients[c.ID] = *c
	return nil
}

func (s *ClientStore) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok || c.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *ClientStore) ListByOwner(ctx context.Context, ownerID string) ([]*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Client
	for _, c := range s.clients {
		if c.OwnerID == ownerID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ReferenceStore keeps reference documents in memory
type ReferenceStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]models.ReferenceDocument
	seq  map[uuid.UUID]int
	next int
}

func NewReferenceStore() *ReferenceStore {
	return &ReferenceStore{
		docs: make(map[uuid.UUID]models.ReferenceDocument),
		seq:  make(map[uuid.UUID]int),
	}
}

func (s *ReferenceStore) Create(ctx context.Context, doc *models.ReferenceDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.ID = newID(doc.ID)
	if _, exists := s.docs[doc.ID]; exists {
		return repository.ErrConflict
	}
	doc.CreatedAt = time.Now().UTC()
	s.docs[doc.ID] = *doc
	s.next++
	s.seq[doc.ID] = s.next
	return nil
}

func (s *ReferenceStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ReferenceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &doc, nil
}

// sorted returns matching documents oldest first
func (s *ReferenceStore) sorted(keep func(models.ReferenceDocument) bool) []*models.ReferenceDocument {
	var out []*models.ReferenceDocument
	for _, doc := range s.docs {
		if keep(doc) {
			doc := doc
			out = append(out, &doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out
}

func (s *ReferenceStore) List(ctx context.Context, caseType string) ([]*models.ReferenceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.sorted(func(d models.ReferenceDocument) bool {
		return caseType == "" || string(d.CaseType) == caseType
	})
	// newest first, like the database stores
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *ReferenceStore) ListUnindexed(ctx context.Context, limit int) ([]*models.ReferenceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.sorted(func(d models.ReferenceDocument) bool { return !d.Indexed })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ReferenceStore) MarkIndexed(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return repository.ErrNotFound
	}
	doc.Indexed = true
	doc.IndexedAt = &at
	s.docs[id] = doc
	return nil
}

func (s *ReferenceStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.docs, id)
	delete(s.seq, id)
	return nil
}

// TemplateStore keeps templates in memory
type TemplateStore struct {
	mu        sync.RWMutex
	templates []models.Template
}

func NewTemplateStore() *TemplateStore {
	return &TemplateStore{}
}

func (s *TemplateStore) Create(ctx context.Context, t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = newID(t.ID)
	t.CreatedAt = time.Now().UTC()
	s.templates = append(s.templates, *t)
	return nil
}

func (s *TemplateStore) FindByCaseAndCriterion(ctx context.Context, caseType, criterion string, limit int) ([]*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Template
	for _, t := range s.templates {
		if string(t.CaseType) == caseType && t.Criterion == criterion {
			t := t
			out = append(out, &t)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *TemplateStore) ListByCaseType(ctx context.Context, caseType string) ([]*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Template
	for _, t := range s.templates {
		if caseType == "" || string(t.CaseType) == caseType {
			t := t
			out = append(out, &t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Criterion < out[j].Criterion })
	return out, nil
}

// ConversationStore keeps chat turns in memory, rejecting a duplicate
// (client, seq) pair the way the database unique constraints do
type ConversationStore struct {
	mu    sync.RWMutex
	turns map[uuid.UUID][]models.ConversationTurn
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{turns: make(map[uuid.UUID][]models.ConversationTurn)}
}

func (s *ConversationStore) Append(ctx context.Context, turn *models.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.turns[turn.ClientID] {
		if t.Seq == turn.Seq {
			return repository.ErrConflict
		}
	}
	turn.ID = newID(turn.ID)
	turn.CreatedAt = time.Now().UTC()
	turns := append(s.turns[turn.ClientID], *turn)
	sort.Slice(turns, func(i, j int) bool { return turns[i].Seq < turns[j].Seq })
	s.turns[turn.ClientID] = turns
	return nil
}

func (s *ConversationStore) LastSeq(ctx context.Context, clientID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.turns[clientID]
	if len(turns) == 0 {
		return 0, nil
	}
	return turns[len(turns)-1].Seq, nil
}

func (s *ConversationStore) ListRecent(ctx context.Context, clientID uuid.UUID, limit int) ([]*models.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.turns[clientID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]*models.ConversationTurn, 0, len(turns))
	for _, t := range turns {
		t := t
		out = append(out, &t)
	}
	return out, nil
}

// PetitionStore keeps generated petitions in memory
type PetitionStore struct {
	mu        sync.RWMutex
	petitions []models.Petition
}

func NewPetitionStore() *PetitionStore {
	return &PetitionStore{}
}

func (s *PetitionStore) Create(ctx context.Context, p *models.Petition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = newID(p.ID)
	p.CreatedAt = time.Now().UTC()
	s.petitions = append(s.petitions, *p)
	return nil
}

func (s *PetitionStore) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Petition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Petition
	for i := len(s.petitions) - 1; i >= 0; i-- {
		if p := s.petitions[i]; p.ClientID == clientID {
			out = append(out, &p)
		}
	}
	return out, nil
}

// JobStore keeps background jobs in memory
type JobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]models.Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[uuid.UUID]models.Job)}
}

func (s *JobStore) Create(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.ID = newID(job.ID)
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	now := time.Now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now
	s.jobs[job.ID] = *job
	return nil
}

func (s *JobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &job, nil
}

func (s *JobStore) update(id uuid.UUID, fn func(*models.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&job)
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = job
	return nil
}

func (s *JobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	return s.update(id, func(j *models.Job) { j.Status = status })
}

func (s *JobStore) UpdateProgress(ctx context.Context, id uuid.UUID, total, processed, failed int) error {
	return s.update(id, func(j *models.Job) {
		j.Total, j.Processed, j.Failed = total, processed, failed
	})
}

func (s *JobStore) Complete(ctx context.Context, id uuid.UUID) error {
	return s.update(id, func(j *models.Job) {
		now := time.Now().UTC()
		j.Status = models.JobStatusCompleted
		j.CompletedAt = &now
	})
}

func (s *JobStore) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	return s.update(id, func(j *models.Job) {
		j.Status = models.JobStatusFailed
		j.ErrorMessage = &errorMessage
	})
}

// CaseDocumentStore keeps client case document metadata in memory
type CaseDocumentStore struct {
	mu   sync.RWMutex
	docs []models.CaseDocument
}

func NewCaseDocumentStore() *CaseDocumentStore {
	return &CaseDocumentStore{}
}

func (s *CaseDocumentStore) Create(ctx context.Context, doc *models.CaseDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.ID = newID(doc.ID)
	doc.UploadedAt = time.Now().UTC()
	s.docs = append(s.docs, *doc)
	return nil
}

func (s *CaseDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.CaseDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.docs {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *CaseDocumentStore) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.CaseDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CaseDocument
	for i := len(s.docs) - 1; i >= 0; i-- {
		if d := s.docs[i]; d.ClientID == clientID {
			out = append(out, &d)
		}
	}
	return out, nil
}
