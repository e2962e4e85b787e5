// Package plan loads commit plans from YAML or JSON files.
package plan

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pders01/git-splice/internal/models"
	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a plan
type File struct {
	Mode    string   `yaml:"mode"`
	Commits []Commit `yaml:"commits"`
}

// Commit is one planned commit. Either Message is given in full, or it is
// composed from Prefix, Scope, Breaking, Header and Body.
type Commit struct {
	Message  string   `yaml:"message"`
	Prefix   string   `yaml:"prefix"`
	Scope    string   `yaml:"scope"`
	Breaking bool     `yaml:"breaking"`
	Header   string   `yaml:"header"`
	Body     string   `yaml:"body"`
	Files    []string `yaml:"files"`
	HunkIDs  []string `yaml:"hunk_ids"`
}

// MessageStyle controls how composed messages are rendered
type MessageStyle struct {
	CapitalizePrefix bool
	IncludeScope     bool
	IncludeBreaking  bool
	BreakingSymbol   string
}

// DefaultMessageStyle renders conventional commits: feat(scope)!: header
func DefaultMessageStyle() MessageStyle {
	return MessageStyle{IncludeScope: true, IncludeBreaking: true, BreakingSymbol: "!"}
}

// Load reads a plan from path; "-" reads standard input
func Load(path string, style MessageStyle) (*models.CommitPlan, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read plan %s", path)
	}
	return Parse(data, style)
}

// Parse decodes a plan. JSON is accepted as a subset of YAML.
func Parse(data []byte, style MessageStyle) (*models.CommitPlan, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse plan")
	}

	p := &models.CommitPlan{Mode: models.StagingMode(strings.ToLower(f.Mode))}
	if p.Mode != "" && !p.Mode.IsValid() {
		return nil, errors.Wrapf(models.ErrInvalidPlan, "invalid mode %q (must be: hunks, files, all)", f.Mode)
	}
	if len(f.Commits) == 0 {
		return nil, errors.Wrap(models.ErrInvalidPlan, "plan has no commits")
	}

	for i, c := range f.Commits {
		msg, err := c.Compose(style)
		if err != nil {
			return nil, errors.Wrapf(err, "commit %d", i+1)
		}
		if _, err := models.ParseHunkIDs(c.HunkIDs); err != nil {
			return nil, errors.Wrapf(err, "commit %d", i+1)
		}
		p.Commits = append(p.Commits, models.CommitDescriptor{
			Message: msg,
			Files:   c.Files,
			HunkIDs: c.HunkIDs,
		})
	}
	return p, nil
}

// Compose returns the full commit message
func (c Commit) Compose(style MessageStyle) (string, error) {
	if msg := strings.TrimSpace(c.Message); msg != "" {
		return msg, nil
	}

	header := strings.TrimSpace(c.Header)
	if header == "" {
		return "", errors.Wrap(models.ErrInvalidPlan, "commit needs a message or a header")
	}

	var subject strings.Builder
	if prefix := strings.TrimSpace(c.Prefix); prefix != "" {
		if style.CapitalizePrefix {
			subject.WriteString(strings.ToUpper(prefix))
		} else {
			subject.WriteString(strings.ToLower(prefix))
		}
		if scope := strings.TrimSpace(c.Scope); style.IncludeScope && scope != "" {
			subject.WriteString("(" + strings.ToLower(scope) + ")")
		}
		if style.IncludeBreaking && c.Breaking {
			symbol := style.BreakingSymbol
			if symbol == "" {
				symbol = "!"
			}
			subject.WriteString(symbol)
		}
		subject.WriteString(": ")
	}
	subject.WriteString(header)

	if body := strings.TrimSpace(c.Body); body != "" {
		return subject.String() + "\n\n" + body, nil
	}
	return subject.String(), nil
}
