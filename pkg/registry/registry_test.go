package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{
		ID:           "list_projects",
		Enabled:      true,
		AccessLevels: []AccessLevel{AccessLevelOrganizationRole},
	}))

	d := r.Lookup("list_projects")
	require.NotNil(t, d)
	assert.True(t, d.HasAccessLevel(AccessLevelOrganizationRole))
	assert.False(t, d.HasAccessLevel(AccessLevelOwner))
	assert.Nil(t, r.Lookup("missing"))
}

func TestRegisterRequiresID(t *testing.T) {
	assert.Error(t, New().Register(Descriptor{Enabled: true}))
}

func TestFinalizeFreezesRegistry(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{ID: "me", Enabled: true}))
	require.NoError(t, r.Finalize())
	assert.True(t, r.Finalized())

	err := r.Register(Descriptor{ID: "late", Enabled: true})
	assert.Error(t, err)
	assert.Nil(t, r.Lookup("late"))

	// Finalize is idempotent.
	assert.NoError(t, r.Finalize())
}

func TestFinalizeValidatesPublicType(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{ID: "login", Enabled: true, IsPublic: true}))
	assert.Error(t, r.Finalize())

	r = New()
	require.NoError(t, r.Register(Descriptor{
		ID: "me", Enabled: true, PublicType: PublicOpen,
	}))
	assert.Error(t, r.Finalize())
}

func TestFinalizeValidatesAccessLevels(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{
		ID: "x", Enabled: true, AccessLevels: []AccessLevel{"BOGUS"},
	}))
	assert.Error(t, r.Finalize())
}

func TestIDsWithAccessLevel(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{
		ID: "b_ws", Enabled: true, AccessLevels: []AccessLevel{AccessLevelConnected},
	}))
	require.NoError(t, r.Register(Descriptor{
		ID: "a_ws", Enabled: true, AccessLevels: []AccessLevel{AccessLevelConnected},
	}))
	require.NoError(t, r.Register(Descriptor{
		ID: "disabled_ws", Enabled: false, AccessLevels: []AccessLevel{AccessLevelConnected},
	}))
	require.NoError(t, r.Finalize())

	ids := r.IDsWithAccessLevel(AccessLevelConnected)
	assert.Equal(t, []string{"a_ws", "b_ws"}, ids)

	// Memoized second lookup returns the same answer.
	assert.Equal(t, ids, r.IDsWithAccessLevel(AccessLevelConnected))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webservices.yml")
	content := `
webservices:
  - id: login
    enabled: true
    is_public: true
    public_type: DISCONNECTED
  - id: list_projects
    enabled: true
    is_licensed: true
    access_levels: [ORGANIZATION_ROLE]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r := New()
	require.NoError(t, LoadFile(r, path))
	require.NoError(t, r.Finalize())

	login := r.Lookup("login")
	require.NotNil(t, login)
	assert.True(t, login.IsPublic)
	assert.Equal(t, PublicDisconnectedOnly, login.PublicType)

	projects := r.Lookup("list_projects")
	require.NotNil(t, projects)
	assert.True(t, projects.IsLicensed)
	assert.True(t, projects.HasAccessLevel(AccessLevelOrganizationRole))
}

func TestLoadDirSkipsNonYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), []byte(
		"webservices:\n  - id: a\n    enabled: true\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	r := New()
	require.NoError(t, LoadDir(r, dir))
	assert.Equal(t, []string{"a"}, r.All())
}

func TestWatcherIgnoresNonYAML(t *testing.T) {
	dir := t.TempDir()
	r := New()

	w, err := NewWatcher(r, dir, nil)
	require.NoError(t, err)
	defer w.Close()

	// An editor backup file carrying a parseable descriptor must not be
	// loaded; only the real registry file is.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml~"), []byte(
		"webservices:\n  - id: b\n    enabled: true\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), []byte(
		"webservices:\n  - id: a\n    enabled: true\n"), 0o644))

	require.Eventually(t, func() bool {
		return r.Lookup("a") != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Nil(t, r.Lookup("b"))
	assert.Equal(t, []string{"a"}, r.All())
}
