// Copyright 2026 The Constrain Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jsonschema

import (
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Resolver is a registry of (absolute URI → schema document) pairs, adapted
// from the teacher's Resolver/CompositeResolver path-fallback pattern
// (resolver.go): instead of import paths it is keyed by absolute URI, and
// instead of returning source bytes for a proto file it returns a parsed
// [Value] for a schema document, feeding §4.3.1's $id/$ref resolution.
type Resolver struct {
	docs map[string]*Value
}

// NewResolver returns an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{docs: make(map[string]*Value)}
}

// Register adds doc to the registry under uri, which must already be an
// absolute URI with no fragment (per RFC 3986, a document's own identity
// never carries one).
func (r *Resolver) Register(uri string, doc *Value) {
	r.docs[stripFragment(uri)] = doc
}

// LoadDir registers every schema document in fsys matching pattern (a
// doublestar glob, e.g. "schemas/**/*.json"), deriving each document's
// registry URI from its own top-level `$id` if present, or else from its
// path within fsys. Both ".json" and ".yaml"/".yml" documents are
// supported (SPEC_FULL §2 domain stack: YAML schema fixtures alongside
// JSON ones).
func (r *Resolver) LoadDir(fsys fs.FS, pattern string) error {
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return fmt.Errorf("jsonschema: glob %q: %w", pattern, err)
	}
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("jsonschema: reading %s: %w", name, err)
		}
		var doc *Value
		if isYAMLPath(name) {
			doc, err = ParseYAML(data)
		} else {
			doc, err = ParseJSON(data)
		}
		if err != nil {
			return fmt.Errorf("jsonschema: parsing %s: %w", name, err)
		}
		uri := name
		if id, ok := doc.Get("$id"); ok && id.Kind == KindString {
			uri = id.Str
		}
		r.Register(uri, doc)
	}
	return nil
}

func isYAMLPath(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// ResolveURI computes the absolute URI a $ref value denotes when read
// relative to base, per §4.3.1: a fragment beginning with "#" appends to
// base (same document); anything else is resolved as a URI reference
// against base (absolute refs pass through unchanged; relative ones
// combine with base the way a browser resolves an href).
func ResolveURI(base, ref string) (string, error) {
	if ref == "" {
		return base, nil
	}
	if strings.HasPrefix(ref, "#") {
		return stripFragment(base) + ref, nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("jsonschema: invalid base URI %q: %w", base, err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("jsonschema: invalid $ref %q: %w", ref, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

// Lookup finds the schema Value named by an absolute URI (as produced by
// ResolveURI): the document registered under the URI's non-fragment part,
// navigated by the fragment as a JSON Pointer (RFC 6901), or as a whole
// document if there is no fragment.
func (r *Resolver) Lookup(uri string) (*Value, error) {
	docURI, fragment := splitFragment(uri)
	doc, ok := r.docs[docURI]
	if !ok {
		return nil, &UnresolvedReference{URI: uri}
	}
	if fragment == "" || fragment == "#" {
		return doc, nil
	}
	return navigatePointer(doc, strings.TrimPrefix(fragment, "#"))
}

// navigatePointer walks an RFC 6901 JSON Pointer (already stripped of its
// leading "#") through v.
func navigatePointer(v *Value, pointer string) (*Value, error) {
	if pointer == "" {
		return v, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("jsonschema: malformed JSON Pointer %q", pointer)
	}
	cur := v
	for _, tok := range strings.Split(pointer, "/")[1:] {
		tok = strings.ReplaceAll(tok, "~1", "/")
		tok = strings.ReplaceAll(tok, "~0", "~")
		switch cur.Kind {
		case KindObject:
			next, ok := cur.Get(tok)
			if !ok {
				return nil, fmt.Errorf("jsonschema: JSON Pointer %q: no member %q", pointer, tok)
			}
			cur = next
		case KindArray:
			idx, err := indexOf(tok)
			if err != nil || idx < 0 || idx >= len(cur.Array) {
				return nil, fmt.Errorf("jsonschema: JSON Pointer %q: bad array index %q", pointer, tok)
			}
			cur = cur.Array[idx]
		default:
			return nil, fmt.Errorf("jsonschema: JSON Pointer %q: cannot index into a scalar", pointer)
		}
	}
	return cur, nil
}

func indexOf(tok string) (int, error) {
	n := 0
	if tok == "" {
		return 0, fmt.Errorf("empty index")
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a decimal index")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func stripFragment(uri string) string {
	docURI, _ := splitFragment(uri)
	return docURI
}

func splitFragment(uri string) (docURI, fragment string) {
	if i := strings.IndexByte(uri, '#'); i >= 0 {
		return uri[:i], uri[i:]
	}
	return uri, ""
}
