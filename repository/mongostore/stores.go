package mongostore

import (
	"context"
	"time"

	"visar-backend/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type clientDoc struct {
	ID        string    `bson:"_id"`
	OwnerID   string    `bson:"owner_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	CaseType  string    `bson:"visa_type"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d clientDoc) model() *models.Client {
	return &models.Client{
		ID:        parseID(d.ID),
		OwnerID:   d.OwnerID,
		Name:      d.Name,
		Email:     d.Email,
		CaseType:  models.VisaType(d.CaseType),
		Status:    models.ClientStatus(d.Status),
		CreatedAt: d.CreatedAt,
	}
}

// ClientStore stores clients in MongoDB
type ClientStore struct {
	collection *mongo.Collection
}

// NewClientStore creates a client store on db
func NewClientStore(db *mongo.Database) *ClientStore {
	return &ClientStore{collection: db.Collection(ClientsCollection)}
}

func (s *ClientStore) Create(ctx context.Context, client *models.Client) error {
	client.ID = newID(client.ID)
	if client.Status == "" {
		client.Status = models.ClientStatusActive
	}
	client.CreatedAt = time.Now().UTC()

	_, err := s.collection.InsertOne(ctx, clientDoc{
		ID:        client.ID.String(),
		OwnerID:   client.OwnerID,
		Name:      client.Name,
		Email:     client.Email,
		CaseType:  string(client.CaseType),
		Status:    string(client.Status),
		CreatedAt: client.CreatedAt,
	})
	return translate(err)
}

func (s *ClientStore) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*models.Client, error) {
	var doc clientDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": id.String(), "owner_id": ownerID}).Decode(&doc)
	if err != nil {
		return nil, translate(err)
	}
	return doc.model(), nil
}

func (s *ClientStore) ListByOwner(ctx context.Context, ownerID string) ([]*models.Client, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}

	var docs []clientDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	clients := make([]*models.Client, 0, len(docs))
	for _, d := range docs {
		clients = append(clients, d.model())
	}
	return clients, nil
}

type referenceDoc struct {
	ID              string     `bson:"_id"`
	Filename        string     `bson:"filename"`
	StoragePath     string     `bson:"storage_path"`
	Content         string     `bson:"content"`
	Category        string     `bson:"category"`
	CaseType        string     `bson:"visa_type"`
	ExtractionError string     `bson:"extraction_error,omitempty"`
	Indexed         bool       `bson:"indexed"`
	IndexedAt       *time.Time `bson:"indexed_at,omitempty"`
	CreatedAt       time.Time  `bson:"created_at"`
}

func (d referenceDoc) model() *models.ReferenceDocument {
	return &models.ReferenceDocument{
		ID:              parseID(d.ID),
		Filename:        d.Filename,
		StoragePath:     d.StoragePath,
		Content:         d.Content,
		Category:        models.Category(d.Category),
		CaseType:        models.VisaType(d.CaseType),
		ExtractionError: d.ExtractionError,
		Indexed:         d.Indexed,
		IndexedAt:       d.IndexedAt,
		CreatedAt:       d.CreatedAt,
	}
}

// ReferenceStore stores reference documents in MongoDB
type ReferenceStore struct {
	collection *mongo.Collection
}

// NewReferenceStore creates a reference document store on db
func NewReferenceStore(db *mongo.Database) *ReferenceStore {
	return &ReferenceStore{collection: db.Collection(ReferencesCollection)}
}

func (s *ReferenceStore) Create(ctx context.Context, doc *models.ReferenceDocument) error {
	doc.ID = newID(doc.ID)
	doc.CreatedAt = time.Now().UTC()

	_, err := s.collection.InsertOne(ctx, referenceDoc{
		ID:              doc.ID.String(),
		Filename:        doc.Filename,
		StoragePath:     doc.StoragePath,
		Content:         doc.Content,
		Category:        string(doc.Category),
		CaseType:        string(doc.CaseType),
		ExtractionError: doc.ExtractionError,
		Indexed:         doc.Indexed,
		IndexedAt:       doc.IndexedAt,
		CreatedAt:       doc.CreatedAt,
	})
	return translate(err)
}

func (s *ReferenceStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ReferenceDocument, error) {
	var doc referenceDoc
	if err := s.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.model(), nil
}

func (s *ReferenceStore) List(ctx context.Context, caseType string) ([]*models.ReferenceDocument, error) {
	filter := bson.M{}
	if caseType != "" {
		filter["visa_type"] = caseType
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.find(ctx, filter, opts)
}

func (s *ReferenceStore) ListUnindexed(ctx context.Context, limit int) ([]*models.ReferenceDocument, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	return s.find(ctx, bson.M{"indexed": false}, opts)
}

func (s *ReferenceStore) MarkIndexed(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"indexed": true, "indexed_at": at}},
	)
	if err != nil {
		return err
	}
	return requireMatch(res.MatchedCount)
}

func (s *ReferenceStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return err
	}
	return requireMatch(res.DeletedCount)
}

func (s *ReferenceStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.ReferenceDocument, error) {
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []referenceDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*models.ReferenceDocument, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

type templateDoc struct {
	ID        string    `bson:"_id"`
	CaseType  string    `bson:"visa_type"`
	Criterion string    `bson:"criterion"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d templateDoc) model() *models.Template {
	return &models.Template{
		ID:        parseID(d.ID),
		CaseType:  models.VisaType(d.CaseType),
		Criterion: d.Criterion,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
	}
}

// TemplateStore stores templates in MongoDB
type TemplateStore struct {
	collection *mongo.Collection
}

// NewTemplateStore creates a template store on db
func NewTemplateStore(db *mongo.Database) *TemplateStore {
	return &TemplateStore{collection: db.Collection(TemplatesCollection)}
}

func (s *TemplateStore) Create(ctx context.Context, tmpl *models.Template) error {
	tmpl.ID = newID(tmpl.ID)
	tmpl.CreatedAt = time.Now().UTC()

	_, err := s.collection.InsertOne(ctx, templateDoc{
		ID:        tmpl.ID.String(),
		CaseType:  string(tmpl.CaseType),
		Criterion: tmpl.Criterion,
		Content:   tmpl.Content,
		CreatedAt: tmpl.CreatedAt,
	})
	return translate(err)
}

func (s *TemplateStore) FindByCaseAndCriterion(ctx context.Context, caseType, criterion string, limit int) ([]*models.Template, error) {
	opts := options.Find().SetLimit(int64(limit))
	return s.find(ctx, bson.M{"visa_type": caseType, "criterion": criterion}, opts)
}

func (s *TemplateStore) ListByCaseType(ctx context.Context, caseType string) ([]*models.Template, error) {
	filter := bson.M{}
	if caseType != "" {
		filter["visa_type"] = caseType
	}
	opts := options.Find().SetSort(bson.D{{Key: "criterion", Value: 1}, {Key: "created_at", Value: 1}})
	return s.find(ctx, filter, opts)
}

func (s *TemplateStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Template, error) {
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []templateDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*models.Template, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

type turnDoc struct {
	ID        string    `bson:"_id"`
	ClientID  string    `bson:"client_id"`
	SessionID string    `bson:"session_id"`
	Seq       int64     `bson:"seq"`
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
}

// ConversationStore stores chat turns in MongoDB
type ConversationStore struct {
	collection *mongo.Collection
}

// NewConversationStore creates a conversation store on db
func NewConversationStore(db *mongo.Database) *ConversationStore {
	return &ConversationStore{collection: db.Collection(ConversationsCollection)}
}

func (s *ConversationStore) Append(ctx context.Context, turn *models.ConversationTurn) error {
	turn.ID = newID(turn.ID)
	turn.CreatedAt = time.Now().UTC()

	_, err := s.collection.InsertOne(ctx, turnDoc{
		ID:        turn.ID.String(),
		ClientID:  turn.ClientID.String(),
		SessionID: turn.SessionID,
		Seq:       turn.Seq,
		Role:      string(turn.Role),
		Content:   turn.Content,
		CreatedAt: turn.CreatedAt,
	})
	return translate(err)
}

func (s *ConversationStore) LastSeq(ctx context.Context, clientID uuid.UUID) (int64, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetProjection(bson.M{"seq": 1})

	var doc turnDoc
	err := s.collection.FindOne(ctx, bson.M{"client_id": clientID.String()}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

// ListRecent reads the newest limit turns and returns them oldest first
func (s *ConversationStore) ListRecent(ctx context.Context, clientID uuid.UUID, limit int) ([]*models.ConversationTurn, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{"client_id": clientID.String()}, opts)
	if err != nil {
		return nil, err
	}
	var docs []turnDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	turns := make([]*models.ConversationTurn, len(docs))
	for i, d := range docs {
		turns[len(docs)-1-i] = &models.ConversationTurn{
			ID:        parseID(d.ID),
			ClientID:  parseID(d.ClientID),
			SessionID: d.SessionID,
			Seq:       d.Seq,
			Role:      models.Role(d.Role),
			Content:   d.Content,
			CreatedAt: d.CreatedAt,
		}
	}
	return turns, nil
}

type petitionDoc struct {
	ID        string    `bson:"_id"`
	ClientID  string    `bson:"client_id"`
	CaseType  string    `bson:"visa_type"`
	Criterion *string   `bson:"criterion,omitempty"`
	Request   string    `bson:"request"`
	Content   string    `bson:"content"`
	SessionID string    `bson:"session_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// PetitionStore stores generated petitions in MongoDB
type PetitionStore struct {
	collection *mongo.Collection
}

// NewPetitionStore creates a petition store on db
func NewPetitionStore(db *mongo.Database) *PetitionStore {
	return &PetitionStore{collection: db.Collection(PetitionsCollection)}
}

func (s *PetitionStore) Create(ctx context.Context, petition *models.Petition) error {
	petition.ID = newID(petition.ID)
	petition.CreatedAt = time.Now().UTC()

	_, err := s.collection.InsertOne(ctx, petitionDoc{
		ID:        petition.ID.String(),
		ClientID:  petition.ClientID.String(),
		CaseType:  string(petition.CaseType),
		Criterion: petition.Criterion,
		Request:   petition.Request,
		Content:   petition.Content,
		SessionID: petition.SessionID,
		CreatedAt: petition.CreatedAt,
	})
	return translate(err)
}

func (s *PetitionStore) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Petition, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{"client_id": clientID.String()}, opts)
	if err != nil {
		return nil, err
	}
	var docs []petitionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	petitions := make([]*models.Petition, 0, len(docs))
	for _, d := range docs {
		petitions = append(petitions, &models.Petition{
			ID:        parseID(d.ID),
			ClientID:  parseID(d.ClientID),
			CaseType:  models.VisaType(d.CaseType),
			Criterion: d.Criterion,
			Request:   d.Request,
			Content:   d.Content,
			SessionID: d.SessionID,
			CreatedAt: d.CreatedAt,
		})
	}
	return petitions, nil
}

type jobDoc struct {
	ID           string     `bson:"_id"`
	Kind         string     `bson:"kind"`
	Status       string     `bson:"status"`
	Total        int        `bson:"total"`
	Processed    int        `bson:"processed"`
	Failed       int        `bson:"failed"`
	ErrorMessage *string    `bson:"error_message,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
	CompletedAt  *time.Time `bson:"completed_at,omitempty"`
}

// JobStore stores background jobs in MongoDB
type JobStore struct {
	collection *mongo.Collection
}

// NewJobStore creates a job store on db
func NewJobStore(db *mongo.Database) *JobStore {
	return &JobStore{collection: db.Collection(JobsCollection)}
}

func (s *JobStore) Create(ctx context.Context, job *models.Job) error {
	job.ID = newID(job.ID)
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	now := time.Now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now

	_, err := s.collection.InsertOne(ctx, jobDoc{
		ID:        job.ID.String(),
		Kind:      string(job.Kind),
		Status:    string(job.Status),
		Total:     job.Total,
		Processed: job.Processed,
		Failed:    job.Failed,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return translate(err)
}

func (s *JobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var d jobDoc
	if err := s.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&d); err != nil {
		return nil, translate(err)
	}
	return &models.Job{
		ID:           parseID(d.ID),
		Kind:         models.JobKind(d.Kind),
		Status:       models.JobStatus(d.Status),
		Total:        d.Total,
		Processed:    d.Processed,
		Failed:       d.Failed,
		ErrorMessage: d.ErrorMessage,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		CompletedAt:  d.CompletedAt,
	}, nil
}

func (s *JobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	return s.set(ctx, id, bson.M{"status": status})
}

func (s *JobStore) UpdateProgress(ctx context.Context, id uuid.UUID, total, processed, failed int) error {
	return s.set(ctx, id, bson.M{"total": total, "processed": processed, "failed": failed})
}

func (s *JobStore) Complete(ctx context.Context, id uuid.UUID) error {
	return s.set(ctx, id, bson.M{"status": models.JobStatusCompleted, "completed_at": time.Now().UTC()})
}

func (s *JobStore) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	return s.set(ctx, id, bson.M{"status": models.JobStatusFailed, "error_message": errorMessage})
}

func (s *JobStore) set(ctx context.Context, id uuid.UUID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": fields})
	return err
}

type caseDocumentDoc struct {
	ID          string    `bson:"_id"`
	ClientID    string    `bson:"client_id"`
	Filename    string    `bson:"filename"`
	FileType    string    `bson:"file_type"`
	MimeType    string    `bson:"mime_type"`
	Size        int64     `bson:"size"`
	StoragePath string    `bson:"file_path"`
	UploadedAt  time.Time `bson:"uploaded_at"`
}

func (d caseDocumentDoc) model() *models.CaseDocument {
	return &models.CaseDocument{
		ID:          parseID(d.ID),
		ClientID:    parseID(d.ClientID),
		Filename:    d.Filename,
		FileType:    d.FileType,
		MimeType:    d.MimeType,
		Size:        d.Size,
		StoragePath: d.StoragePath,
		UploadedAt:  d.UploadedAt,
	}
}

// CaseDocumentStore stores client case document metadata in MongoDB
type CaseDocumentStore struct {
	collection *mongo.Collection
}

// NewCaseDocumentStore creates a case document store on db
func NewCaseDocumentStore(db *mongo.Database) *CaseDocumentStore {
	return &CaseDocumentStore{collection: db.Collection(CaseDocumentsCollection)}
}

func (s *CaseDocumentStore) Create(ctx context.Context, doc *models.CaseDocument) error {
	doc.ID = newID(doc.ID)
	doc.UploadedAt = time.Now().UTC()

	_, err := s.collection.InsertOne(ctx, caseDocumentDoc{
		ID:          doc.ID.String(),
		ClientID:    doc.ClientID.String(),
		Filename:    doc.Filename,
		FileType:    doc.FileType,
		MimeType:    doc.MimeType,
		Size:        doc.Size,
		StoragePath: doc.StoragePath,
		UploadedAt:  doc.UploadedAt,
	})
	return translate(err)
}

func (s *CaseDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.CaseDocument, error) {
	var doc caseDocumentDoc
	if err := s.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.model(), nil
}

func (s *CaseDocumentStore) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.CaseDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{"client_id": clientID.String()}, opts)
	if err != nil {
		return nil, err
	}
	var docs []caseDocumentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*models.CaseDocument, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}
