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

package resolver

import (
	"regexp"
	"strings"
	"sync"

	"github.com/mechanik-daniel/fumifier/ast"
	"github.com/mechanik-daniel/fumifier/fumierr"
	"github.com/mechanik-daniel/fumifier/internal/rewrite"
	"github.com/mechanik-daniel/fumifier/internal/token"
	"github.com/mechanik-daniel/fumifier/navigator"
)

// systemTypePrefix marks a FHIR element whose type is a FHIRPath System
// primitive rather than another StructureDefinition (spec 3, "__kind:
// system" — concretely the `.value` element of a FHIR primitive type).
const systemTypePrefix = "http://hl7.org/fhirpath/System."

// expansionThreshold caps how large a value set may be before the
// resolver fetches its full expansion eagerly (spec 4.4: "if <=
// threshold (e.g., 20 or 100; implementation-defined)").
const expansionThreshold = 100

// resolveWorkers bounds the per-pass fetch fan-out (spec 4.4:
// "concurrently fetches and enriches all referenced FHIR definitions").
// Navigator implementations back these lookups with package files or a
// registry, so a small fixed pool keeps the win without stampeding the
// definition source.
const resolveWorkers = 8

// Options configures a resolve pass (spec 4.4, "Recoverable-error
// policy").
type Options struct {
	// Recover, when true, collects per-position errors into Errors
	// instead of failing the whole resolve on the first problem; the
	// offending slot is marked IsError instead.
	Recover bool
}

// Resolver runs the passes of spec 4.4 against one AST's reference
// tables, producing a populated Defs bag. Within each pass the per-key
// fetches run concurrently; the passes themselves stay ordered, since
// pass N reads what pass N-1 resolved.
type Resolver struct {
	nav  navigator.StructureNavigator
	opts Options

	defs *Defs

	errsMu sync.Mutex
	errs   []fumierr.Error

	// vsMu serializes the ValueSet tracker: spec 4.4's "one try per
	// (url, package)" must hold even when several elements bound to the
	// same value set resolve on different goroutines.
	vsMu    sync.Mutex
	vsTried map[string]VSMode

	// reMu guards the per-(package, typeCode) compiled-regex cache the
	// same way (spec 4.4 pass 4).
	reMu       sync.Mutex
	regexCache map[string]*regexp.Regexp
}

// Resolve runs every pass of spec 4.4 over root using result (produced
// by rewrite.Rewrite) and nav. It returns the populated Defs bag and,
// when opts.Recover, any per-position errors collected along the way;
// with opts.Recover==false the first failure observed is returned as
// err instead.
func Resolve(root ast.Node, result *rewrite.Result, nav navigator.StructureNavigator, opts Options) (*Defs, []fumierr.Error, error) {
	r := &Resolver{
		nav:        nav,
		opts:       opts,
		defs:       NewDefs(),
		vsTried:    make(map[string]VSMode),
		regexCache: make(map[string]*regexp.Regexp),
	}

	if err := r.pass1TypeMeta(result); err != nil {
		return nil, r.errs, err
	}
	if err := r.pass2TypeChildren(result); err != nil {
		return nil, r.errs, err
	}
	if err := r.pass3ElementRefs(result); err != nil {
		return nil, r.errs, err
	}
	if err := r.pass5MandatorySubtree(); err != nil {
		return nil, r.errs, err
	}

	return r.defs, r.errs, nil
}

// forEach runs fn over keys on up to resolveWorkers goroutines, waiting
// for all of them and returning the first error any produced.
func (r *Resolver) forEach(keys []string, fn func(string) error) error {
	if len(keys) <= 1 {
		for _, k := range keys {
			if err := fn(k); err != nil {
				return err
			}
		}
		return nil
	}
	sem := make(chan struct{}, resolveWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for _, k := range keys {
		wg.Add(1)
		sem <- struct{}{}
		go func(k string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(k); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(k)
	}
	wg.Wait()
	return firstErr
}

// fail implements spec 4.4's recoverable-error policy: with
// recover=false the failure is returned for the pass to surface; with
// recover=true it is appended to r.errs and nil is returned so the
// caller can substitute an __isError sentinel and continue.
func (r *Resolver) fail(err fumierr.Error) error {
	if !r.opts.Recover {
		return err
	}
	r.errsMu.Lock()
	r.errs = append(r.errs, err)
	r.errsMu.Unlock()
	return nil
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// pass1TypeMeta fetches type metadata for every unique InstanceOf:
// target (spec 4.4 pass 1), all targets in flight at once.
func (r *Resolver) pass1TypeMeta(result *rewrite.Result) error {
	return r.forEach(mapKeys(result.StructureDefinitionRefs), func(instanceof string) error {
		meta, err := r.nav.GetTypeMeta(instanceof)
		if err != nil || meta == nil {
			pos := firstPos(result.StructureDefinitionRefs[instanceof])
			return r.fail(fumierr.New("F2001", pos, map[string]any{"instanceof": instanceof}))
		}
		r.defs.setTypeMeta(instanceof, meta)
		return nil
	})
}

// pass2TypeChildren fetches and enriches each instanceof's direct
// children (spec 4.4 pass 2), one goroutine per instanceof.
func (r *Resolver) pass2TypeChildren(result *rewrite.Result) error {
	return r.forEach(mapKeys(result.StructureDefinitionRefs), func(instanceof string) error {
		meta, ok := r.defs.Type(instanceof)
		if !ok {
			return nil // already recorded as unresolved in pass 1
		}
		children, err := r.nav.GetChildren(instanceof, "")
		if err != nil {
			return nil
		}
		resolved := make([]*Element, 0, len(children))
		for i := range children {
			el := r.enrich(&children[i], meta.Package)
			refKey := instanceof + "::" + el.jsonSegment()
			r.defs.setElement(refKey, el)
			resolved = append(resolved, el)
		}
		r.defs.setTypeChildren(instanceof, resolved)
		return nil
	})
}

// pass3ElementRefs fetches the exact element for every flashPathRefKey
// the rewriter collected, plus its direct children (spec 4.4 pass 3),
// one goroutine per refKey.
func (r *Resolver) pass3ElementRefs(result *rewrite.Result) error {
	return r.forEach(mapKeys(result.ElementDefinitionRefs), func(refKey string) error {
		return r.resolveElementRef(refKey, result.ElementDefinitionRefs[refKey])
	})
}

func (r *Resolver) resolveElementRef(refKey string, refNodes []ast.Node) error {
	instanceof, path, ok := splitRefKey(refKey)
	if !ok {
		return nil
	}
	meta, ok := r.defs.Type(instanceof)
	if !ok {
		return nil
	}
	pos := firstPos(refNodes)

	navPath := denormalizeSlices(path)
	elemDef, found, err := r.nav.GetElement(instanceof, navPath)
	if err != nil || !found {
		if e := r.fail(fumierr.New("F2002", pos, map[string]any{"path": path})); e != nil {
			return e
		}
		r.defs.setElement(refKey, &Element{IsError: true, FlashPathRefKey: refKey})
		return nil
	}

	if len(elemDef.Types) == 0 && elemDef.ContentReference == "" {
		if e := r.fail(fumierr.New("F2007", pos, map[string]any{"path": path})); e != nil {
			return e
		}
	}
	if len(elemDef.Types) > 1 && !isChoiceSegmentQualified(path) {
		names := make([]string, 0, len(elemDef.Types))
		base := lastSegmentBase(path)
		for _, t := range elemDef.Types {
			names = append(names, base+initCapASCII(t.Code))
		}
		if e := r.fail(fumierr.New("F2004", pos, map[string]any{"path": path, "names": strings.Join(names, ", ")})); e != nil {
			return e
		}
	}

	el := r.enrich(elemDef, meta.Package)
	el.FlashPathRefKey = refKey
	r.defs.setElement(refKey, el)

	childSnapshot := elementSnapshotID(instanceof, elemDef, el)
	children, err := r.nav.GetChildren(childSnapshot, elemDef.Path)
	if err == nil && len(children) > 0 {
		resolvedChildren := make([]*Element, 0, len(children))
		for i := range children {
			childEl := r.enrich(&children[i], meta.Package)
			childRefKey := refKey + "." + childEl.jsonSegment()
			r.defs.setElementIfAbsent(childRefKey, childEl)
			resolvedChildren = append(resolvedChildren, childEl)
		}
		r.defs.setElemChildren(refKey, resolvedChildren)
	}

	if el.Kind == KindPrimitiveType {
		if err := r.resolvePrimitiveRegex(el, meta.Package); err != nil {
			return err
		}
	}
	return r.resolveBinding(el, meta.Package, pos)
}

// pass5MandatorySubtree walks every resolved element whose min>=1 and
// kind isn't system, recursively fetching and enriching its children
// until no new work remains (spec 4.4 pass 5). Each wave of the walk
// fans its fetches out; the next wave is whatever mandatory children
// the current one surfaced. The special case "Quantity.value" is itself
// a system-kind leaf but still needs its sibling Quantity element's
// other mandatory children walked, which falls out naturally since
// Quantity itself is complex-type.
func (r *Resolver) pass5MandatorySubtree() error {
	visited := make(map[string]bool)
	var queue []string
	r.defs.mu.RLock()
	for k, el := range r.defs.Elements {
		if el.Min >= 1 && el.Kind != KindSystem && !el.IsError {
			queue = append(queue, k)
		}
	}
	r.defs.mu.RUnlock()

	for len(queue) > 0 {
		wave := make([]string, 0, len(queue))
		for _, k := range queue {
			if !visited[k] {
				visited[k] = true
				wave = append(wave, k)
			}
		}
		queue = nil

		var nextMu sync.Mutex
		err := r.forEach(wave, func(refKey string) error {
			next, err := r.expandMandatory(refKey)
			if err != nil {
				return err
			}
			if len(next) > 0 {
				nextMu.Lock()
				queue = append(queue, next...)
				nextMu.Unlock()
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// expandMandatory fetches and registers refKey's children, returning
// the refKeys of any mandatory non-system children that still need
// their own subtrees walked.
func (r *Resolver) expandMandatory(refKey string) ([]string, error) {
	el, ok := r.defs.element(refKey)
	if !ok || el.IsError {
		return nil, nil
	}
	if r.defs.hasElemChildren(refKey) {
		return nil, nil
	}
	instanceof, _, ok := splitRefKey(refKey)
	if !ok {
		return nil, nil
	}
	meta, ok := r.defs.Type(instanceof)
	if !ok {
		return nil, nil
	}
	snapshot := elementSnapshotID(instanceof, &el.ElementDefinition, el)
	children, err := r.nav.GetChildren(snapshot, el.Path)
	if err != nil || len(children) == 0 {
		return nil, nil
	}
	var next []string
	resolvedChildren := make([]*Element, 0, len(children))
	for i := range children {
		childEl := r.enrich(&children[i], meta.Package)
		childRefKey := refKey + "." + childEl.jsonSegment()
		r.defs.setElementIfAbsent(childRefKey, childEl)
		resolvedChildren = append(resolvedChildren, childEl)
		if childEl.Min >= 1 && childEl.Kind != KindSystem {
			next = append(next, childRefKey)
		}
	}
	r.defs.setElemChildren(refKey, resolvedChildren)
	return next, nil
}

// enrich computes every derived field spec 3 names for a freshly
// fetched ElementDefinition (IsArray, Kind, FhirTypeCode, Names,
// content-reference repair).
func (r *Resolver) enrich(raw *navigator.ElementDefinition, pkg navigator.PackageRef) *Element {
	el := &Element{ElementDefinition: *raw}
	el.IsArray = el.BaseMax != "1" && el.BaseMax != "0" && el.BaseMax != ""

	types := el.Types
	if len(types) == 0 && el.ContentReference != "" {
		types = []navigator.ElementType{{Code: "BackboneElement"}}
		el.Types = types
	}

	base := lastSegmentBase(el.Path)
	if len(types) == 1 {
		el.FhirTypeCode = types[0].Code
		el.Names = []string{base}
	} else if len(types) > 1 {
		el.FhirTypeCode = "" // polymorphic; resolved per-use by the FLASH evaluator
		names := make([]string, 0, len(types))
		for _, t := range types {
			names = append(names, base+initCapASCII(t.Code))
		}
		el.Names = names
	} else {
		el.Names = []string{base}
	}

	switch {
	case el.FhirTypeCode != "" && strings.HasPrefix(el.FhirTypeCode, systemTypePrefix):
		el.Kind = KindSystem
	case el.FhirTypeCode != "":
		if tm, err := r.nav.GetBaseTypeMeta(el.FhirTypeCode, pkg); err == nil && tm != nil {
			r.defs.setBaseTypeMeta(pkg.String()+"::"+el.FhirTypeCode, tm)
			el.Kind = Kind(tm.Kind)
		} else {
			el.Kind = KindComplexType
		}
	default:
		el.Kind = KindComplexType
	}

	if raw.MaxLengthVal != nil {
		el.MaxLength = *raw.MaxLengthVal
	}
	return el
}

// resolvePrimitiveRegex recovers a primitive type's value regex and
// maxLength by consulting its base type's `.value` element, caching per
// (package, typeCode) (spec 4.4 pass 4). The cache mutex covers the
// fetch too, so concurrent elements of the same primitive type compile
// its regex once.
func (r *Resolver) resolvePrimitiveRegex(el *Element, pkg navigator.PackageRef) error {
	cacheKey := pkg.String() + "::" + el.FhirTypeCode
	r.reMu.Lock()
	defer r.reMu.Unlock()
	if compiled, ok := r.regexCache[cacheKey]; ok {
		el.CompiledRegex = compiled
		return nil
	}
	valueElem, found, err := r.nav.GetElement(el.FhirTypeCode, el.FhirTypeCode+".value")
	if err != nil || !found {
		ferr := fumierr.New("F2008", token.NoPos, map[string]any{"code": el.FhirTypeCode})
		return r.fail(ferr)
	}
	if valueElem.Regex != "" {
		compiled, cerr := regexp.Compile("^(?:" + valueElem.Regex + ")$")
		if cerr == nil {
			r.regexCache[cacheKey] = compiled
			el.CompiledRegex = compiled
		}
	}
	if valueElem.MaxLengthVal != nil {
		el.MaxLength = *valueElem.MaxLengthVal
	}
	return nil
}

// resolveBinding applies spec 4.4's binding-resolution precedence and,
// once a (vsUrl, package) pair is identified, counts/expands it subject
// to the per-(url,package) tracker and expansionThreshold. The tracker
// mutex covers the count/expand calls, keeping the one-try guarantee
// under concurrent resolution.
func (r *Resolver) resolveBinding(el *Element, pkg navigator.PackageRef, pos token.Pos) error {
	var vsURL string
	switch {
	case el.BindingStrength == "required" && el.BindingValueSet != "":
		el.BindingKind = BindingRequired
		vsURL = el.BindingValueSet
	case el.MaxValueSet != "":
		el.BindingKind = BindingRequired
		vsURL = el.MaxValueSet
	case (el.BindingStrength == "extensible" || el.BindingStrength == "preferred" || el.BindingStrength == "example") && el.BindingValueSet != "":
		el.BindingKind = BindingExtensible
		vsURL = el.BindingValueSet
	default:
		return nil
	}

	trackKey := vsURL
	el.VSRefKey = trackKey

	r.vsMu.Lock()
	defer r.vsMu.Unlock()

	if mode, tried := r.vsTried[trackKey]; tried {
		el.VSMode = mode
		return nil
	}

	count, err := r.nav.GetValueSetExpansionCount(vsURL, pkg)
	if err != nil || count.Status == "error" {
		el.VSMode = VSError
		r.vsTried[trackKey] = VSError
		return nil
	}
	if count.Count > expansionThreshold {
		el.VSMode = VSLazy
		r.vsTried[trackKey] = VSLazy
		return nil
	}
	expansion, err := r.nav.ExpandValueSet(vsURL, pkg)
	if err != nil || expansion == nil {
		el.VSMode = VSError
		r.vsTried[trackKey] = VSError
		return nil
	}
	r.defs.setValueSet(trackKey, expansion)
	el.VSMode = VSFull
	r.vsTried[trackKey] = VSFull
	return nil
}

func (el *Element) jsonSegment() string {
	base := lastSegmentBase(el.Path)
	if el.SliceName != "" {
		return base + "[" + el.SliceName + "]"
	}
	return base
}

func splitRefKey(refKey string) (instanceof, path string, ok bool) {
	i := strings.Index(refKey, "::")
	if i < 0 {
		return "", "", false
	}
	return refKey[:i], refKey[i+2:], true
}

func firstPos(nodes []ast.Node) token.Pos {
	if len(nodes) == 0 {
		return token.NoPos
	}
	return nodes[0].Pos()
}

// lastSegmentBase returns the final dotted segment of path with any
// trailing `[slice]`/`[N]` suffix stripped.
func lastSegmentBase(path string) string {
	seg := path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		seg = path[i+1:]
	}
	if i := strings.IndexByte(seg, '['); i >= 0 {
		seg = seg[:i]
	}
	return seg
}

func isChoiceSegmentQualified(path string) bool {
	seg := path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		seg = path[i+1:]
	}
	return strings.Contains(seg, "[") && !strings.HasSuffix(seg, "]")
}

// denormalizeSlices converts our internal `name[slice]` dotted-path
// convention into the FHIRPath-style `name:slice` the navigator's
// GetElement is expected to accept, matching how FHIR ElementDefinition
// ids and HL7's own slicing path grammar write slice references.
func denormalizeSlices(path string) string {
	if !strings.Contains(path, "[") {
		return path
	}
	segs := strings.Split(path, ".")
	for i, seg := range segs {
		open := strings.IndexByte(seg, '[')
		if open < 0 {
			continue
		}
		close := strings.IndexByte(seg, ']')
		if close < 0 {
			continue
		}
		name, slice := seg[:open], seg[open+1:close]
		segs[i] = name + ":" + slice
	}
	return strings.Join(segs, ".")
}

// elementSnapshotID picks the snapshot a child-fetch should be scoped
// to: the element's own type (so a BackboneElement's children resolve
// against the enclosing profile) falls back to the declared FHIR type
// code for non-backbone complex types/resources.
func elementSnapshotID(instanceof string, raw *navigator.ElementDefinition, el *Element) string {
	if el.FhirTypeCode == "BackboneElement" || el.ContentReference != "" {
		return instanceof
	}
	if el.FhirTypeCode != "" {
		return el.FhirTypeCode
	}
	return instanceof
}

// initCapASCII upper-cases the first byte of s (FHIR type codes are
// ASCII, so a byte-wise capitalize avoids pulling in unicode casing for
// this narrow, internal use — user-facing $initCap uses
// golang.org/x/text/cases instead, see builtin/strings.go).
func initCapASCII(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-32) + s[1:]
	}
	return s
}
