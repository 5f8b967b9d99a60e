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

// Package navigator declares the StructureNavigator contract (spec 6):
// the external FHIR-definition provider the definition resolver (spec
// component H) consumes. Fumifier never loads or caches
// StructureDefinitions itself — per spec 1's scope, "the FHIR definition
// source... its internal caches; its package-resolution strategy" is an
// external collaborator. The shape here mirrors gofhir-validator's
// pkg/registry.Registry: a lightweight, JSON-derived view of a
// StructureDefinition's snapshot elements, keyed by canonical URL/type
// and by dotted element path.
package navigator

import "fmt"

// PackageRef identifies the FHIR package (and version) a definition or
// value set was authored in, used to key the resolver's per-(package)
// caches (spec 3, "Resolved-definitions bag").
type PackageRef struct {
	ID      string
	Version string
}

func (p PackageRef) String() string {
	if p.ID == "" {
		return ""
	}
	if p.Version == "" {
		return p.ID
	}
	return fmt.Sprintf("%s@%s", p.ID, p.Version)
}

// TypeMeta is the type-level metadata the resolver's pass 1 fetches for
// every unique `InstanceOf:` target, and pass 4 fetches again (as
// GetBaseTypeMeta) for every system-primitive's base type (spec 4.4).
type TypeMeta struct {
	Kind           string // "resource" | "complex-type" | "primitive-type" | "logical"
	URL            string
	Type           string // the type this definition defines, e.g. "Patient"
	BaseDefinition string // canonical URL of the base StructureDefinition
	Derivation     string // "specialization" | "constraint"
	Package        PackageRef
}

// IsProfile reports whether this type meta describes a profile
// (constraint derivation) rather than a base resource/type definition —
// used to decide whether a FlashBlock injects meta.profile (spec 4.7
// step 3).
func (t TypeMeta) IsProfile() bool { return t.Derivation == "constraint" }

// ElementType is one entry of ElementDefinition.type (FHIR allows
// polymorphic elements to declare more than one).
type ElementType struct {
	Code          string
	Profile       []string
	TargetProfile []string
}

// ElementDefinition is the resolved per-element metadata the resolver
// enriches (spec 3, "Element definition (resolved)"). Fixed/pattern
// values and the regex/maxLength/binding extensions are extracted by
// the navigator implementation from the StructureDefinition's raw JSON
// (it owns the polymorphic fixed[x]/pattern[x] lookup, the way
// gofhir-validator's registry.GetFixed/GetPattern do), so the resolver
// and FLASH evaluator never need to know FHIR's 45+ type-suffixed
// property names.
type ElementDefinition struct {
	ID        string
	Path      string
	SliceName string
	Min       int
	Max       string
	BasePath  string
	BaseMax   string
	Types     []ElementType

	// ContentReference, when set, names another element's path this one
	// reuses (FHIR's "#Questionnaire.item" recursive-structure idiom);
	// the resolver repairs a missing Types entry into "BackboneElement"
	// for these (spec 4.4 pass 2).
	ContentReference string

	FixedValue   any
	FixedType    string // the fixed[x] suffix, e.g. "Code", "Coding"
	PatternValue any
	PatternType  string

	BindingStrength string // "required" | "extensible" | "preferred" | "example"
	BindingValueSet string
	// MaxValueSet is the elementdefinition-maxValueSet.valueCanonical
	// extension value, consulted by the binding-precedence rule (spec
	// 4.4) ahead of a plain extensible/preferred binding.
	MaxValueSet string

	// Regex/MaxLengthVal are extracted from a primitive-type's own
	// `.value` element (the `regex` extension and the `maxLength`
	// element respectively) — populated only when this ElementDefinition
	// IS that `.value` element, consulted by the resolver's pass 4.
	Regex        string
	MaxLengthVal *int

	// SliceNames lists the slice names defined on this element, when it
	// is a sliced element — used by the FLASH
	// evaluator's mandatory-slice-generation step (spec 4.7 step 5).
	SliceNames []string
}

// Concept is one code entry of an expanded ValueSet.
type Concept struct {
	System  string
	Code    string
	Display string
}

// ExpandedValueSet is the resolver's cached shape for a fully expanded
// value set: system -> code -> Concept (spec 3, "valueSetExpansions").
type ExpandedValueSet map[string]map[string]Concept

// Has reports whether (system, code) is a member of the expansion; an
// empty system matches any system (used for bare-code primitive
// bindings where the system is not separately known).
func (e ExpandedValueSet) Has(system, code string) bool {
	if system != "" {
		codes, ok := e[system]
		if !ok {
			return false
		}
		_, ok = codes[code]
		return ok
	}
	for _, codes := range e {
		if _, ok := codes[code]; ok {
			return true
		}
	}
	return false
}

// ExpansionCount is returned by GetValueSetExpansionCount so the
// resolver can decide full-vs-lazy expansion (spec 4.4) without paying
// for a full expansion just to measure it.
type ExpansionCount struct {
	Status string // "available" | "unknown" | "error"
	Count  int
}

// StructureNavigator is the external FHIR-definition provider the
// resolver consumes (spec 6). Implementations own all package
// resolution, caching, and ValueSet expansion machinery; fumifier calls
// only these methods.
type StructureNavigator interface {
	// GetElement returns the exact ElementDefinition at path under
	// snapshotID (a canonical URL or type/profile id), or ok=false if no
	// such element exists.
	GetElement(snapshotID, path string) (elem *ElementDefinition, ok bool, err error)

	// GetChildren returns the direct children of path under snapshotID
	// (path=="" means the type's top-level children).
	GetChildren(snapshotID, path string) ([]ElementDefinition, error)

	// GetTypeMeta returns type-level metadata for snapshotID.
	GetTypeMeta(snapshotID string) (*TypeMeta, error)

	// GetBaseTypeMeta returns type-level metadata for a bare FHIR type
	// code (e.g. "code", "Quantity"), optionally scoped to the package
	// that authored the referencing profile.
	GetBaseTypeMeta(typeCode string, sourcePackage PackageRef) (*TypeMeta, error)

	// ExpandValueSet returns the full expansion of the value set
	// identified by key (a canonical URL, optionally with |version).
	ExpandValueSet(key string, sourcePackage PackageRef) (ExpandedValueSet, error)

	// GetValueSetExpansionCount reports the size of a value set's
	// expansion without materializing it, so the resolver can apply its
	// full-vs-lazy threshold (spec 4.4).
	GetValueSetExpansionCount(key string, sourcePackage PackageRef) (ExpansionCount, error)
}

// TerminologyChecker is an optional StructureNavigator capability (spec
// 6, "Optional: inValueSet"). Navigators that cannot check membership
// without a full expansion need not implement it.
type TerminologyChecker interface {
	InValueSet(codeOrCoding any, vsKey string, sourcePackage PackageRef) (bool, error)
}

// ConceptMapTranslator is an optional StructureNavigator capability
// (spec 6, "Optional:... translateConceptMap").
type ConceptMapTranslator interface {
	TranslateConceptMap(codeOrCoding any, cmKey string, sourcePackage PackageRef) (any, error)
}
