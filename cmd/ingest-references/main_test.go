package main

import (
	"os"
	"path/filepath"
	"testing"

	"visar-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("unsuccessful/denied.txt", "denied")
	write("successful/approved.md", "approved")
	write("loose.txt", "loose")
	write("image.png", "skip")

	reqs, err := collect(root, "EB-1A", models.CategorySuccessful)
	require.NoError(t, err)
	require.Len(t, reqs, 3)

	byName := map[string]models.Category{}
	for _, r := range reqs {
		byName[r.Filename] = r.Category
		assert.Equal(t, models.VisaType("EB-1A"), r.CaseType)
	}
	assert.Equal(t, models.CategoryUnsuccessful, byName["denied.txt"])
	assert.Equal(t, models.CategorySuccessful, byName["approved.md"])
	assert.Equal(t, models.CategorySuccessful, byName["loose.txt"])
}
