// Package language defines the static catalog of supported execution languages.
package language

import (
	"sort"

	"github.com/google/shlex"

	appErr "codejudge/pkg/errors"
)

// Language identifies one supported submission language.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	Java       Language = "java"
	Cpp        Language = "cpp"
)

const (
	// SourceFileBase is the canonical source file name inside the sandbox,
	// without extension. Command templates reference it directly.
	SourceFileBase = "Main"

	// InputFileName is the canonical stdin payload file inside the sandbox.
	InputFileName = "input.txt"

	// WorkspaceDir is the directory inside the execution unit where source
	// and input files are materialized.
	WorkspaceDir = "/workspace"
)

// Descriptor describes how to build and run a submission for one language.
// Command is a shell line executed inside the execution image; it reads the
// canonical input file and (for compiled languages) compiles first.
type Descriptor struct {
	ID        Language `yaml:"id"`
	Image     string   `yaml:"image"`
	Extension string   `yaml:"extension"`
	Command   string   `yaml:"command"`
}

// SourceFileName returns the canonical source file name for the language.
func (d Descriptor) SourceFileName() string {
	return SourceFileBase + d.Extension
}

// defaultDescriptors is the built-in language set.
var defaultDescriptors = []Descriptor{
	{
		ID:        Python,
		Image:     "python:3.12-slim",
		Extension: ".py",
		Command:   "cd /workspace && python Main.py < input.txt",
	},
	{
		ID:        JavaScript,
		Image:     "node:22-alpine",
		Extension: ".js",
		Command:   "cd /workspace && node Main.js < input.txt",
	},
	{
		ID:        Java,
		Image:     "openjdk:21-slim",
		Extension: ".java",
		Command:   "cd /workspace && javac Main.java && cat input.txt | java Main",
	},
	{
		ID:        Cpp,
		Image:     "gcc:14",
		Extension: ".cpp",
		Command:   "cd /workspace && g++ Main.cpp -O2 -std=c++20 && cat input.txt | ./a.out",
	},
}

// Catalog is an immutable lookup table from language id to descriptor.
// It is loaded once at process start and never mutated afterwards.
type Catalog struct {
	byID map[Language]Descriptor
}

// DefaultCatalog returns the catalog with the built-in language set.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(defaultDescriptors)
	if err != nil {
		// Built-in descriptors are validated by tests; this cannot happen.
		panic(err)
	}
	return catalog
}

// NewCatalog builds a catalog from descriptors, validating each entry.
// Command templates are shell-lexed so malformed quoting fails at startup
// rather than at first submission.
func NewCatalog(descriptors []Descriptor) (*Catalog, error) {
	if len(descriptors) == 0 {
		return nil, appErr.New(appErr.RequiredFieldEmpty).WithMessage("at least one language descriptor is required")
	}
	byID := make(map[Language]Descriptor, len(descriptors))
	for _, d := range descriptors {
		if d.ID == "" {
			return nil, appErr.ValidationError("id", "required")
		}
		if _, exists := byID[d.ID]; exists {
			return nil, appErr.Newf(appErr.InvalidParams, "duplicate language descriptor: %s", d.ID)
		}
		if d.Image == "" {
			return nil, appErr.ValidationError("image", "required").WithDetail("language", string(d.ID))
		}
		if d.Extension == "" || d.Extension[0] != '.' {
			return nil, appErr.ValidationError("extension", "must start with a dot").WithDetail("language", string(d.ID))
		}
		if d.Command == "" {
			return nil, appErr.ValidationError("command", "required").WithDetail("language", string(d.ID))
		}
		if _, err := shlex.Split(d.Command); err != nil {
			return nil, appErr.Wrapf(err, appErr.InvalidFormat, "invalid command template for language %s", d.ID)
		}
		byID[d.ID] = d
	}
	return &Catalog{byID: byID}, nil
}

// Get returns the descriptor for a language id.
func (c *Catalog) Get(id Language) (Descriptor, error) {
	d, ok := c.byID[id]
	if !ok {
		return Descriptor{}, appErr.Newf(appErr.LanguageNotSupported, "language %q is not supported", id)
	}
	return d, nil
}

// Contains reports whether the language id is in the catalog.
func (c *Catalog) Contains(id Language) bool {
	_, ok := c.byID[id]
	return ok
}

// Languages returns the sorted list of supported language ids.
func (c *Catalog) Languages() []Language {
	ids := make([]Language, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
