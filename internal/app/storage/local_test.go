package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var storedNameRe = regexp.MustCompile(`^\d+-[0-9A-Za-z]+-report\.pdf$`)

func TestLocalStoreSavesUpload(t *testing.T) {
	root := t.TempDir()

	svc, err := NewService(ServiceConfig{RootDir: root})
	require.NoError(t, err)

	content := "hello upload"
	stored, err := svc.Save(context.Background(), KindUpload, "report.pdf", strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, "report.pdf", stored.Name)
	assert.Equal(t, int64(len(content)), stored.Size)
	require.True(t, strings.HasPrefix(stored.URL, "/uploads/"), "unexpected URL: %s", stored.URL)

	storedName := strings.TrimPrefix(stored.URL, "/uploads/")
	assert.Regexp(t, storedNameRe, storedName)

	data, err := os.ReadFile(filepath.Join(root, "uploads", storedName))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestLocalStoreSavesAvatarUnderPublic(t *testing.T) {
	root := t.TempDir()

	svc, err := NewService(ServiceConfig{RootDir: root, PublicBaseURL: "http://chat.lan"})
	require.NoError(t, err)

	stored, err := svc.Save(context.Background(), KindAvatar, "me.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(stored.URL, "http://chat.lan/public/avatars/"), "unexpected URL: %s", stored.URL)

	storedName := strings.TrimPrefix(stored.URL, "http://chat.lan/public/avatars/")
	_, err = os.Stat(filepath.Join(root, "public", "avatars", storedName))
	assert.NoError(t, err)
}

func TestLocalStoreStripsPathFromName(t *testing.T) {
	root := t.TempDir()

	svc, err := NewService(ServiceConfig{RootDir: root})
	require.NoError(t, err)

	stored, err := svc.Save(context.Background(), KindUpload, "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)

	storedName := strings.TrimPrefix(stored.URL, "/uploads/")
	assert.NotContains(t, storedName, "/")
	assert.True(t, strings.HasSuffix(storedName, "-passwd"), "unexpected stored name: %s", storedName)

	// Nothing escaped the uploads directory.
	entries, err := os.ReadDir(filepath.Join(root, "uploads"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
