package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/epub"
	"github.com/mrlokans/bookshelf/internal/epub/epubtest"
)

type cliEnv struct {
	state string
	dir   string
	out   bytes.Buffer
}

func newEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	return &cliEnv{state: filepath.Join(dir, "libraryState.json"), dir: dir}
}

func (e *cliEnv) flags() registryFlags {
	return registryFlags{StatePath: e.state, Out: &e.out}
}

func (e *cliEnv) addLibrary(t *testing.T, name string) string {
	t.Helper()
	cmd := NewLibraryAddCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-state", e.state, "-name", name, "-path", filepath.Join(e.dir, name)}))
	cmd.Out = &e.out
	require.NoError(t, cmd.Run())
	return filepath.Join(e.dir, name)
}

func TestLibraryAddCommand_ParseFlags(t *testing.T) {
	cmd := NewLibraryAddCommand()
	assert.ErrorContains(t, cmd.ParseFlags([]string{"-path", "/tmp/x"}), "-name")

	cmd = NewLibraryAddCommand()
	assert.ErrorContains(t, cmd.ParseFlags([]string{"-name", "x"}), "-path")

	cmd = NewLibraryAddCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-name", "x", "-path", "/tmp/x"}))
	assert.Equal(t, "./libraryState.json", cmd.StatePath)
}

func TestLibrariesCommand(t *testing.T) {
	env := newEnv(t)

	cmd := &LibrariesCommand{registryFlags: env.flags()}
	require.NoError(t, cmd.Run())
	assert.Contains(t, env.out.String(), "No libraries registered")

	env.addLibrary(t, "Fiction")
	env.addLibrary(t, "Papers")
	assert.Contains(t, env.out.String(), `Added library "Papers"`)

	env.out.Reset()
	require.NoError(t, cmd.Run())
	output := env.out.String()
	assert.Contains(t, output, "Fiction")
	assert.Contains(t, output, "Papers")
	assert.Contains(t, output, "*")

	cmd.Select = "missing"
	assert.Error(t, cmd.Run())
}

func TestImportAndListCommands(t *testing.T) {
	env := newEnv(t)
	env.addLibrary(t, "Main")

	inbox := t.TempDir()
	epubtest.Book("Dune", "Frank Herbert", "Dune Chronicles", 1).Write(t, filepath.Join(inbox, "dune.epub"))
	epubtest.Archive{NoContainer: true}.Write(t, filepath.Join(inbox, "broken.epub"))
	single := epubtest.Book("Emma", "Jane Austen", "", 0).Write(t, filepath.Join(t.TempDir(), "emma.epub"))

	importCmd := NewImportCommand()
	require.NoError(t, importCmd.ParseFlags([]string{"-state", env.state, "-dir", inbox, single}))
	importCmd.Out = &env.out
	require.NoError(t, importCmd.RunContext(context.Background()))

	output := env.out.String()
	assert.Contains(t, output, "Importing 3 archives")
	assert.Contains(t, output, "Total: 3, succeeded: 2, failed: 1")
	assert.Contains(t, output, "broken.epub")

	env.out.Reset()
	list := &ListCommand{registryFlags: env.flags()}
	require.NoError(t, list.Run())
	output = env.out.String()
	assert.Contains(t, output, "Frank Herbert")
	assert.Contains(t, output, "Dune Chronicles #1")
	assert.Contains(t, output, "Emma")
	assert.Contains(t, output, "2 books")

	env.out.Reset()
	list.Query = "austen"
	require.NoError(t, list.Run())
	assert.NotContains(t, env.out.String(), "Dune")
	assert.Contains(t, env.out.String(), "1 books")
}

func TestImportCommand_ParseFlags(t *testing.T) {
	cmd := NewImportCommand()
	assert.Error(t, cmd.ParseFlags([]string{}))

	cmd = NewImportCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-library", "abc", "a.epub", "b.epub"}))
	assert.Equal(t, "abc", cmd.LibraryID)
	assert.Equal(t, []string{"a.epub", "b.epub"}, cmd.Files)
}

func TestCommands_NoLibrary(t *testing.T) {
	env := newEnv(t)

	list := &ListCommand{registryFlags: env.flags()}
	assert.Error(t, list.Run())

	sync := &SyncMetadataCommand{registryFlags: env.flags()}
	assert.Error(t, sync.RunContext(context.Background()))
}

func TestSyncMetadataCommand(t *testing.T) {
	env := newEnv(t)
	env.addLibrary(t, "Main")

	src := epubtest.Book("Dune", "Frank Herbert", "", 0).Write(t, filepath.Join(t.TempDir(), "dune.epub"))
	importCmd := &ImportCommand{registryFlags: env.flags(), Files: []string{src}}
	require.NoError(t, importCmd.RunContext(context.Background()))

	env.out.Reset()
	sync := &SyncMetadataCommand{registryFlags: env.flags()}
	require.NoError(t, sync.RunContext(context.Background()))
	assert.Contains(t, env.out.String(), "Total: 1, succeeded: 1, failed: 0")

	archives, err := filepath.Glob(filepath.Join(env.dir, "Main", "Frank Herbert", "Dune", "*.epub"))
	require.NoError(t, err)
	require.Len(t, archives, 1)
	m, err := epub.ReadMetadata(archives[0])
	require.NoError(t, err)
	require.Len(t, m.Creators, 1)
	assert.Equal(t, "Herbert, Frank", m.Creators[0].FileAs)
}
