package language

import (
	"strings"
	"testing"

	appErr "codejudge/pkg/errors"
)

func TestDefaultCatalogContainsBuiltinLanguages(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()
	for _, id := range []Language{Python, JavaScript, Java, Cpp} {
		d, err := catalog.Get(id)
		if err != nil {
			t.Fatalf("Get(%s) returned error: %v", id, err)
		}
		if d.Image == "" || d.Command == "" {
			t.Fatalf("descriptor for %s is incomplete: %+v", id, d)
		}
		if !strings.HasPrefix(d.SourceFileName(), SourceFileBase) {
			t.Fatalf("unexpected source file name %q", d.SourceFileName())
		}
		if !strings.Contains(d.Command, d.SourceFileName()) {
			t.Fatalf("command for %s does not reference %s: %q", id, d.SourceFileName(), d.Command)
		}
	}
}

func TestCatalogGetUnknownLanguage(t *testing.T) {
	t.Parallel()

	_, err := DefaultCatalog().Get("cobol")
	if err == nil {
		t.Fatal("expected error for unknown language")
	}
	if appErr.GetCode(err) != appErr.LanguageNotSupported {
		t.Fatalf("expected LanguageNotSupported, got %d", appErr.GetCode(err))
	}
}

func TestCatalogLanguagesSorted(t *testing.T) {
	t.Parallel()

	ids := DefaultCatalog().Languages()
	if len(ids) != 4 {
		t.Fatalf("expected 4 languages, got %d", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("languages not sorted: %v", ids)
		}
	}
}

func TestNewCatalogValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		descriptor Descriptor
		wantCode   appErr.ErrorCode
	}{
		{
			name:       "missing image",
			descriptor: Descriptor{ID: "go", Extension: ".go", Command: "go run Main.go"},
			wantCode:   appErr.ValidationFailed,
		},
		{
			name:       "extension without dot",
			descriptor: Descriptor{ID: "go", Image: "golang:1.24", Extension: "go", Command: "go run Main.go"},
			wantCode:   appErr.ValidationFailed,
		},
		{
			name:       "unbalanced quote in command",
			descriptor: Descriptor{ID: "go", Image: "golang:1.24", Extension: ".go", Command: `go run "Main.go`},
			wantCode:   appErr.InvalidFormat,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewCatalog([]Descriptor{tc.descriptor})
			if err == nil {
				t.Fatal("expected validation error")
			}
			if appErr.GetCode(err) != tc.wantCode {
				t.Fatalf("expected code %d, got %d", tc.wantCode, appErr.GetCode(err))
			}
		})
	}
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	t.Parallel()

	d := Descriptor{ID: Python, Image: "python:3.12-slim", Extension: ".py", Command: "python Main.py"}
	_, err := NewCatalog([]Descriptor{d, d})
	if err == nil {
		t.Fatal("expected duplicate descriptor error")
	}
}
