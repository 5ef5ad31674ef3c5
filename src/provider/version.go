package provider

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"gopkg.in/yaml.v3"
)

// ErrNoVersion is returned when a version source exists but carries no
// usable version.
var ErrNoVersion = errors.New("no version found")

// Pubspec reads the `version: 1.2.3+4` field of a Flutter pubspec.yaml and
// exposes it as versionName 1.2.3 and versionCode 4. Without a build number
// the versionCode is left unset.
func Pubspec(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec struct {
		Version string `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("provider: parse %s: %w", path, err)
	}
	if spec.Version == "" {
		return nil, fmt.Errorf("provider: %s: %w", path, ErrNoVersion)
	}
	return versionFields(spec.Version)
}

// versionFields splits a Flutter-style version into name and build number.
func versionFields(raw string) (Map, error) {
	v, err := masterminds.StrictNewVersion(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("provider: invalid version %q: %w", raw, err)
	}

	name := fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
	if v.Prerelease() != "" {
		name += "-" + v.Prerelease()
	}
	out := Map{KeyVersionName: name}

	if md := v.Metadata(); md != "" {
		code, err := strconv.Atoi(md)
		if err != nil {
			return nil, fmt.Errorf("provider: build number %q in %q is not an integer", md, raw)
		}
		out[KeyVersionCode] = strconv.Itoa(code)
	}
	return out, nil
}

// Git derives versionName from the highest semver tag whose commit is an
// ancestor of HEAD (or HEAD itself) and versionCode from the number of
// commits on HEAD. Tags on other branches are skipped. A history without
// semver tags yields versionName 0.0.0.
func Git(dir string) (Map, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("provider: open git repository %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("provider: resolve HEAD: %w", err)
	}

	commits, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("provider: walk history: %w", err)
	}
	onHead := map[plumbing.Hash]bool{}
	err = commits.ForEach(func(c *object.Commit) error {
		onHead[c.Hash] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("provider: walk history: %w", err)
	}

	tags, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("provider: list tags: %w", err)
	}
	var best *masterminds.Version
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		v, err := masterminds.NewVersion(ref.Name().Short())
		if err != nil {
			return nil // not a version tag
		}
		target := ref.Hash()
		if tag, err := repo.TagObject(target); err == nil {
			c, err := tag.Commit()
			if err != nil {
				return nil // annotated tag of a tree or blob
			}
			target = c.Hash
		}
		if !onHead[target] {
			return nil
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("provider: list tags: %w", err)
	}

	name := "0.0.0"
	if best != nil {
		name = fmt.Sprintf("%d.%d.%d", best.Major(), best.Minor(), best.Patch())
		if best.Prerelease() != "" {
			name += "-" + best.Prerelease()
		}
	}

	return Map{
		KeyVersionName: name,
		KeyVersionCode: strconv.Itoa(len(onHead)),
	}, nil
}
