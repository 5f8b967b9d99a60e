// Copyright 2026 Fumifier Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package resolver implements spec component H, the definition
// resolver: given an AST with containsFlash=true, a StructureNavigator,
// and the rewriter's structureDefinitionRefs/elementDefinitionRefs
// tables, it walks every FLASH reference and builds the resolved-
// definitions bag (spec 3) the FLASH evaluator consults at evaluation
// time. Its pass-based, cache-as-you-go shape follows
// gofhir-validator's pkg/validator.Validator, which resolves and caches
// element/type metadata incrementally rather than loading an entire
// package graph eagerly.
package resolver

import (
	"regexp"
	"sync"

	"github.com/mechanik-daniel/fumifier/navigator"
)

// Kind classifies a resolved element the way spec 3's "__kind" derived
// field does.
type Kind string

const (
	KindSystem        Kind = "system"
	KindPrimitiveType Kind = "primitive-type"
	KindComplexType   Kind = "complex-type"
	KindResource      Kind = "resource"
)

// VSMode is the ValueSet expansion mode spec 4.4 assigns once a binding
// is identified: fetch the full expansion, defer it (lazy), or record
// that expansion failed (error).
type VSMode string

const (
	VSFull  VSMode = "full"
	VSLazy  VSMode = "lazy"
	VSError VSMode = "error"
)

// BindingKind classifies which of spec 4.4's precedence rules produced
// a binding, which the FLASH evaluator needs to pick F5120-3 (required)
// vs F5340-3 (extensible) diagnostics (spec 4.7's binding validation).
type BindingKind string

const (
	BindingNone       BindingKind = ""
	BindingRequired   BindingKind = "required"
	BindingExtensible BindingKind = "extensible"
)

// Element is the resolved, enriched view of a navigator.ElementDefinition
// (spec 3, "Element definition (resolved)"): the raw FHIR metadata plus
// every derived field the FLASH evaluator needs without re-deriving it
// per evaluation.
type Element struct {
	navigator.ElementDefinition

	Kind         Kind
	FhirTypeCode string
	IsArray      bool
	// Names lists the JSON element name(s) this element can appear
	// under: exactly one for a monomorphic element, several for a
	// polymorphic `value[x]`-style element (spec 3, "__name[]").
	Names []string

	FlashPathRefKey string

	CompiledRegex *regexp.Regexp
	MaxLength     int // 0 means unset

	BindingKind BindingKind
	VSRefKey    string
	VSMode      VSMode

	// IsError marks a slot the resolver could not resolve while running
	// with recover=true (spec 4.4, "Recoverable-error policy"); the
	// FLASH evaluator skips elements so marked rather than panicking on
	// a half-resolved AST.
	IsError bool
}

// Defs is the keyed, concurrency-safe resolved-definitions bag a
// compiled expression owns for its lifetime (spec 3, "Resolved-
// definitions bag"). It is built once at compile time and is logically
// immutable (read-only) for every subsequent evaluate() call — readers
// never need the mutex once Resolve has returned, but it is exposed to
// let a caller merge/extend a bag across compiles of related profiles.
type Defs struct {
	mu sync.RWMutex

	TypeMeta     map[string]*navigator.TypeMeta        // instanceof -> type meta
	TypeChildren map[string][]*Element                  // instanceof -> direct children
	Elements     map[string]*Element                    // flashPathRefKey -> element
	ElemChildren map[string][]*Element                  // flashPathRefKey -> direct children
	BaseTypeMeta map[string]*navigator.TypeMeta          // "pkg@ver::code" -> base type meta
	ValueSets    map[string]navigator.ExpandedValueSet   // vsUrl -> expansion
}

// NewDefs returns an empty, ready-to-populate Defs bag.
func NewDefs() *Defs {
	return &Defs{
		TypeMeta:     make(map[string]*navigator.TypeMeta),
		TypeChildren: make(map[string][]*Element),
		Elements:     make(map[string]*Element),
		ElemChildren: make(map[string][]*Element),
		BaseTypeMeta: make(map[string]*navigator.TypeMeta),
		ValueSets:    make(map[string]navigator.ExpandedValueSet),
	}
}

func (d *Defs) element(refKey string) (*Element, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.Elements[refKey]
	return e, ok
}

func (d *Defs) setElement(refKey string, e *Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Elements[refKey] = e
}

// setElementIfAbsent registers a child-pass element without clobbering a
// slot the exact-element pass may already have enriched (regex, binding)
// — pass order over the ref tables is not deterministic.
func (d *Defs) setElementIfAbsent(refKey string, e *Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.Elements[refKey]; !ok {
		d.Elements[refKey] = e
	}
}

func (d *Defs) setElemChildren(refKey string, children []*Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ElemChildren[refKey] = children
}

func (d *Defs) hasElemChildren(refKey string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.ElemChildren[refKey]
	return ok
}

func (d *Defs) setTypeMeta(instanceof string, meta *navigator.TypeMeta) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.TypeMeta[instanceof] = meta
}

func (d *Defs) setTypeChildren(instanceof string, children []*Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.TypeChildren[instanceof] = children
}

func (d *Defs) setBaseTypeMeta(key string, meta *navigator.TypeMeta) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.BaseTypeMeta[key] = meta
}

func (d *Defs) setValueSet(key string, vs navigator.ExpandedValueSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ValueSets[key] = vs
}

// Element looks up a resolved element by its FlashPathRefKey (spec 3:
// "the stable key is the future lookup key into the resolved-
// definitions bag"). Safe for concurrent use by multiple evaluate()
// calls sharing this compiled expression.
func (d *Defs) Element(refKey string) (*Element, bool) { return d.element(refKey) }

// Children returns the direct resolved children of refKey, or the
// top-level children of an instanceof when refKey is an instanceof id
// rather than a flashPathRefKey.
func (d *Defs) Children(refKey string) []*Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if c, ok := d.ElemChildren[refKey]; ok {
		return c
	}
	return d.TypeChildren[refKey]
}

// Type returns the type meta for instanceof, if resolved.
func (d *Defs) Type(instanceof string) (*navigator.TypeMeta, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.TypeMeta[instanceof]
	return t, ok
}

// ValueSet returns the cached expansion for key (an Element's
// VSRefKey), if one was resolved (spec 4.4's full-expansion mode).
func (d *Defs) ValueSet(key string) (navigator.ExpandedValueSet, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	vs, ok := d.ValueSets[key]
	return vs, ok
}
