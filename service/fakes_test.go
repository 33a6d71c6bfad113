package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"visar-backend/llm"
	"visar-backend/models"
	"visar-backend/repository"
	"visar-backend/vectorindex"

	"github.com/google/uuid"
)

const testDim = 4

// keywordEmbedder maps exact texts to fixed vectors. Unknown text lands on
// the last axis, orthogonal to every test vector that avoids it.
type keywordEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   int
}

func newKeywordEmbedder(vectors map[string][]float32) *keywordEmbedder {
	return &keywordEmbedder{vectors: vectors}
}

func (e *keywordEmbedder) Dimension() int { return testDim }

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return append([]float32(nil), v...), nil
	}
	return []float32{0, 0, 0, 1}, nil
}

func (e *keywordEmbedder) setErr(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

type fakeGenerator struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []llm.Request
}

func (g *fakeGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *fakeGenerator) last() llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

type memClientStore struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*models.Client
}

func newMemClientStore() *memClientStore {
	return &memClientStore{clients: make(map[uuid.UUID]*models.Client)}
}

func (s *memClientStore) Create(ctx context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	cp := *c
	s.clients[c.ID] = &cp
	return nil
}

func (s *memClientStore) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok || c.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memClientStore) ListByOwner(ctx context.Context, ownerID string) ([]*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Client
	for _, c := range s.clients {
		if c.OwnerID == ownerID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memReferenceStore struct {
	mu        sync.Mutex
	docs      map[uuid.UUID]*models.ReferenceDocument
	order     []uuid.UUID
	createErr error
}

func newMemReferenceStore() *memReferenceStore {
	return &memReferenceStore{docs: make(map[uuid.UUID]*models.ReferenceDocument)}
}

func (s *memReferenceStore) Create(ctx context.Context, doc *models.ReferenceDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	doc.CreatedAt = time.Now()
	cp := *doc
	s.docs[doc.ID] = &cp
	s.order = append(s.order, doc.ID)
	return nil
}

func (s *memReferenceStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ReferenceDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *memReferenceStore) List(ctx context.Context, caseType string) ([]*models.ReferenceDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ReferenceDocument
	for _, id := range s.order {
		doc, ok := s.docs[id]
		if ok && (caseType == "" || string(doc.CaseType) == caseType) {
			cp := *doc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memReferenceStore) ListUnindexed(ctx context.Context, limit int) ([]*models.ReferenceDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ReferenceDocument
	for _, id := range s.order {
		doc, ok := s.docs[id]
		if ok && !doc.Indexed {
			cp := *doc
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memReferenceStore) MarkIndexed(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return repository.ErrNotFound
	}
	doc.Indexed = true
	doc.IndexedAt = &at
	return nil
}

func (s *memReferenceStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

type memTemplateStore struct {
	mu        sync.Mutex
	templates []*models.Template
	findErr   error
}

func (s *memTemplateStore) Create(ctx context.Context, t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	s.templates = append(s.templates, &cp)
	return nil
}

func (s *memTemplateStore) FindByCaseAndCriterion(ctx context.Context, caseType, criterion string, limit int) ([]*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	var out []*models.Template
	for _, t := range s.templates {
		if string(t.CaseType) == caseType && t.Criterion == criterion && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memTemplateStore) ListByCaseType(ctx context.Context, caseType string) ([]*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Template
	for _, t := range s.templates {
		if caseType == "" || string(t.CaseType) == caseType {
			out = append(out, t)
		}
	}
	return out, nil
}

// memConversationStore enforces the (client, seq) uniqueness the real
// stores get from their indexes
type memConversationStore struct {
	mu        sync.Mutex
	turns     []*models.ConversationTurn
	appendErr error
	// conflicts makes the next n appends fail with ErrConflict
	conflicts int
}

func (s *memConversationStore) Append(ctx context.Context, turn *models.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	if s.conflicts > 0 {
		s.conflicts--
		return repository.ErrConflict
	}
	for _, t := range s.turns {
		if t.ClientID == turn.ClientID && t.Seq == turn.Seq {
			return repository.ErrConflict
		}
	}
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	turn.CreatedAt = time.Now()
	cp := *turn
	s.turns = append(s.turns, &cp)
	return nil
}

func (s *memConversationStore) LastSeq(ctx context.Context, clientID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last int64
	for _, t := range s.turns {
		if t.ClientID == clientID && t.Seq > last {
			last = t.Seq
		}
	}
	return last, nil
}

func (s *memConversationStore) ListRecent(ctx context.Context, clientID uuid.UUID, limit int) ([]*models.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ConversationTurn
	for _, t := range s.turns {
		if t.ClientID == clientID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type memPetitionStore struct {
	mu        sync.Mutex
	petitions []*models.Petition
	createErr error
}

func (s *memPetitionStore) Create(ctx context.Context, p *models.Petition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	cp := *p
	s.petitions = append(s.petitions, &cp)
	return nil
}

func (s *memPetitionStore) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Petition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Petition
	for _, p := range s.petitions {
		if p.ClientID == clientID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[uuid.UUID]*models.Job)}
}

func (s *memJobStore) Create(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *memJobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *memJobStore) update(id uuid.UUID, fn func(*models.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(job)
	return nil
}

func (s *memJobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	return s.update(id, func(j *models.Job) { j.Status = status })
}

func (s *memJobStore) UpdateProgress(ctx context.Context, id uuid.UUID, total, processed, failed int) error {
	return s.update(id, func(j *models.Job) { j.Total, j.Processed, j.Failed = total, processed, failed })
}

func (s *memJobStore) Complete(ctx context.Context, id uuid.UUID) error {
	return s.update(id, func(j *models.Job) {
		now := time.Now()
		j.Status = models.JobStatusCompleted
		j.CompletedAt = &now
	})
}

func (s *memJobStore) Fail(ctx context.Context, id uuid.UUID, msg string) error {
	return s.update(id, func(j *models.Job) {
		j.Status = models.JobStatusFailed
		j.ErrorMessage = &msg
	})
}

// flakyIndex fails upserts while failing is set
type flakyIndex struct {
	*vectorindex.MemoryIndex
	mu      sync.Mutex
	failing bool
}

func (f *flakyIndex) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func (f *flakyIndex) Upsert(ctx context.Context, rec vectorindex.Record) error {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return errBoom
	}
	return f.MemoryIndex.Upsert(ctx, rec)
}

func newTestIndex(t *testing.T) *vectorindex.MemoryIndex {
	t.Helper()
	idx, err := vectorindex.NewMemoryIndex(vectorindex.Spec{Name: "test", Dimension: testDim, Metric: vectorindex.MetricCosine})
	if err != nil {
		t.Fatalf("new memory index: %v", err)
	}
	return idx
}

var errBoom = errors.New("boom")

type memCaseDocumentStore struct {
	mu        sync.Mutex
	docs      []models.CaseDocument
	createErr error
}

func (s *memCaseDocumentStore) Create(ctx context.Context, doc *models.CaseDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	doc.UploadedAt = time.Now()
	s.docs = append(s.docs, *doc)
	return nil
}

func (s *memCaseDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.CaseDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memCaseDocumentStore) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.CaseDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CaseDocument
	for i := len(s.docs) - 1; i >= 0; i-- {
		if d := s.docs[i]; d.ClientID == clientID {
			out = append(out, &d)
		}
	}
	return out, nil
}
