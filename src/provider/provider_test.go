package provider

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestChainFirstHitWins(t *testing.T) {
	c := Chain{
		Map{KeyMinSdkVersion: "23"},
		nil,
		FlutterDefaults(),
	}

	v, ok := c.Lookup(KeyMinSdkVersion)
	require.True(t, ok)
	assert.Equal(t, "23", v)

	v, ok = c.Lookup(KeyCompileSdkVersion)
	require.True(t, ok)
	assert.Equal(t, "35", v)

	_, ok = c.Lookup("nope")
	assert.False(t, ok)
}

func TestMapKeysSorted(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Map{"c": "3", "a": "1", "b": "2"}.Keys())
	assert.Empty(t, Map{}.Keys())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml nested",
			file: "flutter.yaml",
			content: `flutter:
  minSdkVersion: 23
  versionName: "2.1.0"
  ndkVersion: 27.0.12077973
`,
		},
		{
			name: "toml table",
			file: "flutter.toml",
			content: `[flutter]
minSdkVersion = 23
versionName = "2.1.0"
ndkVersion = "27.0.12077973"
`,
		},
		{
			name: "properties",
			file: "local.properties",
			content: `# written by flutter tool
sdk.dir=/opt/android
flutter.minSdkVersion=23
flutter.versionName=2.1.0
ndkVersion = 27.0.\
12077973
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := LoadFile(writeFile(t, dir, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, "23", m[KeyMinSdkVersion])
			assert.Equal(t, "2.1.0", m[KeyVersionName])
			assert.Equal(t, "27.0.12077973", m[KeyNdkVersion])
		})
	}
}

func TestLoadPropertiesEscapes(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadFile(writeFile(t, dir, "local.properties", `flutter.sdk=C\:\\src\\flutter
sdk.dir=C\:\\Users\\dev\\AppData\\Local\\Android\\sdk
flutter.versionName 1.0.0
flutter.buildName : caf\u00e9
flutter.versionCode   42
keyAlias=${alias}
`))
	require.NoError(t, err)

	assert.Equal(t, `C:\src\flutter`, m["sdk"])
	assert.Equal(t, `C:\Users\dev\AppData\Local\Android\sdk`, m["sdk.dir"])
	assert.Equal(t, "1.0.0", m[KeyVersionName])
	assert.Equal(t, "café", m["buildName"])
	assert.Equal(t, "42", m[KeyVersionCode])
	assert.Equal(t, "${alias}", m["keyAlias"])
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(writeFile(t, dir, "flutter.json", "{}"))
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = LoadFile(writeFile(t, dir, "bad.properties", "flutter.versionName=\\uZZZZ\n"))
	assert.ErrorContains(t, err, "bad.properties")

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestPubspec(t *testing.T) {
	dir := t.TempDir()

	m, err := Pubspec(writeFile(t, dir, "pubspec.yaml", "name: true_bargain\nversion: 1.4.2+17\n"))
	require.NoError(t, err)
	assert.Equal(t, Map{KeyVersionName: "1.4.2", KeyVersionCode: "17"}, m)

	m, err = Pubspec(writeFile(t, dir, "pre.yaml", "version: 2.0.0-beta.1\n"))
	require.NoError(t, err)
	assert.Equal(t, Map{KeyVersionName: "2.0.0-beta.1"}, m)

	_, err = Pubspec(writeFile(t, dir, "none.yaml", "name: x\n"))
	assert.True(t, errors.Is(err, ErrNoVersion))

	_, err = Pubspec(writeFile(t, dir, "word.yaml", "version: 1.0.0+abc\n"))
	assert.ErrorContains(t, err, "not an integer")
}

func TestGit(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	sig := &object.Signature{Name: "ci", Email: "ci@example.com", When: time.Unix(1700000000, 0)}
	commit := func(msg string) {
		writeFile(t, dir, "README.md", msg)
		_, err := wt.Add("README.md")
		require.NoError(t, err)
		_, err = wt.Commit(msg, &git.CommitOptions{Author: sig})
		require.NoError(t, err)
	}

	commit("one")
	m, err := Git(dir)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", m[KeyVersionName])
	assert.Equal(t, "1", m[KeyVersionCode])

	head, err := repo.Head()
	require.NoError(t, err)
	_, err = repo.CreateTag("v1.2.0", head.Hash(), nil)
	require.NoError(t, err)
	_, err = repo.CreateTag("nightly", head.Hash(), nil)
	require.NoError(t, err)

	commit("two")
	head, err = repo.Head()
	require.NoError(t, err)
	_, err = repo.CreateTag("v1.10.0", head.Hash(), nil)
	require.NoError(t, err)
	commit("three")

	m, err = Git(dir)
	require.NoError(t, err)
	assert.Equal(t, "1.10.0", m[KeyVersionName])
	assert.Equal(t, "3", m[KeyVersionCode])

	t.Run("tags off HEAD are ignored", func(t *testing.T) {
		head, err := repo.Head()
		require.NoError(t, err)
		_, err = repo.CreateTag("v1.11.0-rc.1", head.Hash(), &git.CreateTagOptions{Tagger: sig, Message: "rc"})
		require.NoError(t, err)

		require.NoError(t, wt.Checkout(&git.CheckoutOptions{
			Hash:   head.Hash(),
			Branch: plumbing.NewBranchReferenceName("side"),
			Create: true,
		}))
		commit("side")
		side, err := repo.Head()
		require.NoError(t, err)
		_, err = repo.CreateTag("v9.0.0", side.Hash(), nil)
		require.NoError(t, err)
		require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: plumbing.Master}))

		m, err := Git(dir)
		require.NoError(t, err)
		assert.Equal(t, "1.11.0-rc.1", m[KeyVersionName])
		assert.Equal(t, "3", m[KeyVersionCode])
	})
}
