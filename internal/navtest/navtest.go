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

// Package navtest provides a fake, in-memory navigator.StructureNavigator
// for tests: the definition resolver and the FLASH evaluator never touch
// a real FHIR package, so exercising spec scenarios S4/S6 and the
// resolver's passes needs a minimal stand-in keyed the same way a real
// navigator would be, without pulling in any FHIR package-loading
// machinery.
package navtest

import (
	"sync"

	"github.com/mechanik-daniel/fumifier/navigator"
)

// Fake is a hand-populated navigator.StructureNavigator. Every lookup
// table is keyed exactly the way the resolver calls it (see the field
// comments), so a test builds one by filling in just the elements its
// scenario touches.
type Fake struct {
	// Types maps an InstanceOf: target (snapshotID) to its type meta.
	Types map[string]*navigator.TypeMeta

	// BaseTypes maps a bare FHIR type code (e.g. "boolean", "HumanName")
	// to its type meta, consulted by GetBaseTypeMeta regardless of
	// package.
	BaseTypes map[string]*navigator.TypeMeta

	// Elements maps snapshotID to a dotted-path -> ElementDefinition
	// table (GetElement).
	Elements map[string]map[string]navigator.ElementDefinition

	// Children maps snapshotID to a path -> children table (GetChildren);
	// path=="" is a type's top-level children.
	Children map[string]map[string][]navigator.ElementDefinition

	// ValueSets maps a value set key to its expansion (ExpandValueSet).
	ValueSets map[string]navigator.ExpandedValueSet

	// ExpansionCounts maps a value set key to its reported size
	// (GetValueSetExpansionCount). A key absent from this map but present
	// in ValueSets is treated as a count matching the expansion's size.
	ExpansionCounts map[string]navigator.ExpansionCount

	// SeenPackages records every sourcePackage a value-set lookup was
	// called with, keyed by the value-set key — tests use this to assert
	// the resolver threads the element's own package through rather than
	// a zero-value PackageRef. Guarded by mu: the resolver fans its
	// fetches out over goroutines, and tests read this only after
	// Resolve returns.
	SeenPackages map[string][]navigator.PackageRef

	mu sync.Mutex
}

// New returns an empty Fake ready for a test to populate.
func New() *Fake {
	return &Fake{
		Types:           make(map[string]*navigator.TypeMeta),
		BaseTypes:       make(map[string]*navigator.TypeMeta),
		Elements:        make(map[string]map[string]navigator.ElementDefinition),
		Children:        make(map[string]map[string][]navigator.ElementDefinition),
		ValueSets:       make(map[string]navigator.ExpandedValueSet),
		ExpansionCounts: make(map[string]navigator.ExpansionCount),
		SeenPackages:    make(map[string][]navigator.PackageRef),
	}
}

// PutElement registers path under snapshotID (GetElement) only; a
// type's children lists are registered separately with PutChildren.
func (f *Fake) PutElement(snapshotID, path string, elem navigator.ElementDefinition) {
	if f.Elements[snapshotID] == nil {
		f.Elements[snapshotID] = make(map[string]navigator.ElementDefinition)
	}
	f.Elements[snapshotID][path] = elem
}

// PutChildren registers the children of path under snapshotID
// (GetChildren).
func (f *Fake) PutChildren(snapshotID, path string, children []navigator.ElementDefinition) {
	if f.Children[snapshotID] == nil {
		f.Children[snapshotID] = make(map[string][]navigator.ElementDefinition)
	}
	f.Children[snapshotID][path] = children
}

func (f *Fake) GetElement(snapshotID, path string) (*navigator.ElementDefinition, bool, error) {
	byPath, ok := f.Elements[snapshotID]
	if !ok {
		return nil, false, nil
	}
	elem, ok := byPath[path]
	if !ok {
		return nil, false, nil
	}
	return &elem, true, nil
}

func (f *Fake) GetChildren(snapshotID, path string) ([]navigator.ElementDefinition, error) {
	byPath, ok := f.Children[snapshotID]
	if !ok {
		return nil, nil
	}
	return byPath[path], nil
}

func (f *Fake) GetTypeMeta(snapshotID string) (*navigator.TypeMeta, error) {
	return f.Types[snapshotID], nil
}

func (f *Fake) GetBaseTypeMeta(typeCode string, sourcePackage navigator.PackageRef) (*navigator.TypeMeta, error) {
	return f.BaseTypes[typeCode], nil
}

func (f *Fake) recordPackage(key string, pkg navigator.PackageRef) {
	f.mu.Lock()
	f.SeenPackages[key] = append(f.SeenPackages[key], pkg)
	f.mu.Unlock()
}

func (f *Fake) ExpandValueSet(key string, sourcePackage navigator.PackageRef) (navigator.ExpandedValueSet, error) {
	f.recordPackage(key, sourcePackage)
	vs, ok := f.ValueSets[key]
	if !ok {
		return nil, nil
	}
	return vs, nil
}

func (f *Fake) GetValueSetExpansionCount(key string, sourcePackage navigator.PackageRef) (navigator.ExpansionCount, error) {
	f.recordPackage(key, sourcePackage)
	if c, ok := f.ExpansionCounts[key]; ok {
		return c, nil
	}
	vs, ok := f.ValueSets[key]
	if !ok {
		return navigator.ExpansionCount{Status: "unknown"}, nil
	}
	n := 0
	for _, codes := range vs {
		n += len(codes)
	}
	return navigator.ExpansionCount{Status: "available", Count: n}, nil
}
