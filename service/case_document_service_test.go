package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"visar-backend/models"
	"visar-backend/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type caseDocFixture struct {
	svc    *CaseDocumentService
	store  *memCaseDocumentStore
	dir    string
	client *models.Client
}

func newCaseDocFixture(t *testing.T) *caseDocFixture {
	t.Helper()
	dir := t.TempDir()
	st, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	clients := NewClientService(WithClientStore(newMemClientStore()))
	client, err := clients.CreateClient(context.Background(), CreateClientRequest{
		OwnerID: owner, Name: "Dr. Ana Rivera", CaseType: models.VisaTypeEB1A,
	})
	require.NoError(t, err)

	store := &memCaseDocumentStore{}
	return &caseDocFixture{
		svc: NewCaseDocumentService(
			CaseDocWithStore(store),
			CaseDocWithClientService(clients),
			CaseDocWithStorage(st),
		),
		store:  store,
		dir:    dir,
		client: client,
	}
}

func TestCaseDocuments_UploadListDownload(t *testing.T) {
	f := newCaseDocFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, UploadCaseDocumentRequest{
		OwnerID:  owner,
		ClientID: f.client.ID,
		Filename: "evidence.txt",
		FileType: "evidence",
		Data:     []byte("Best paper award, 2019"),
	})
	require.NoError(t, err)
	assert.Equal(t, "evidence", doc.FileType)
	assert.Equal(t, int64(22), doc.Size)
	assert.Contains(t, doc.MimeType, "text/plain")
	assert.NotEmpty(t, doc.StoragePath)

	docs, err := f.svc.ListDocuments(ctx, owner, f.client.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)

	got, rc, err := f.svc.Download(ctx, owner, doc.ID)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Best paper award, 2019", string(body))
	assert.Equal(t, "evidence.txt", got.Filename)
}

func TestCaseDocuments_ScopedByOwner(t *testing.T) {
	f := newCaseDocFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, UploadCaseDocumentRequest{
		OwnerID: owner, ClientID: f.client.ID, Filename: "cv.txt", FileType: "cv", Data: []byte("cv"),
	})
	require.NoError(t, err)

	_, _, err = f.svc.Download(ctx, "mallory", doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = f.svc.ListDocuments(ctx, "mallory", f.client.ID)
	assert.ErrorIs(t, err, ErrClientNotFound)

	_, err = f.svc.Upload(ctx, UploadCaseDocumentRequest{
		OwnerID: "mallory", ClientID: f.client.ID, Filename: "cv.txt", FileType: "cv", Data: []byte("cv"),
	})
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestCaseDocuments_Errors(t *testing.T) {
	f := newCaseDocFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, UploadCaseDocumentRequest{OwnerID: owner, ClientID: f.client.ID, Filename: "cv.txt", Data: []byte("cv")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Upload(ctx, UploadCaseDocumentRequest{OwnerID: owner, ClientID: f.client.ID, FileType: "cv", Data: []byte("cv")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = f.svc.Download(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	f.svc.storage = nil
	_, err = f.svc.Upload(ctx, UploadCaseDocumentRequest{OwnerID: owner, ClientID: f.client.ID, Filename: "cv.txt", FileType: "cv", Data: []byte("cv")})
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestCaseDocuments_FailedRecordRemovesUpload(t *testing.T) {
	f := newCaseDocFixture(t)
	f.store.createErr = errors.New("insert failed")

	_, err := f.svc.Upload(context.Background(), UploadCaseDocumentRequest{
		OwnerID: owner, ClientID: f.client.ID, Filename: "cv.txt", FileType: "cv", Data: []byte("cv"),
	})
	assert.ErrorIs(t, err, ErrPersistFailed)

	var files []string
	require.NoError(t, filepath.WalkDir(f.dir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, path)
		}
		return err
	}))
	assert.Empty(t, files)
}

func TestCaseDocuments_MissingBlobIsNotFound(t *testing.T) {
	f := newCaseDocFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, UploadCaseDocumentRequest{
		OwnerID: owner, ClientID: f.client.ID, Filename: "cv.txt", FileType: "cv", Data: []byte("cv"),
	})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(f.dir, doc.StoragePath)))

	_, _, err = f.svc.Download(ctx, owner, doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
