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

package flash

import (
	"bytes"
	"encoding/json"
)

// OrderedObject is a JSON object that remembers insertion order (spec
// 4.7 steps 7-8, "FHIR children order restored at assignment time";
// "resourceType first; Bundle.entry.fullUrl injected after link").
// encoding/json always marshals a plain Go map with its keys sorted
// alphabetically, which would silently discard the order FHIR expects,
// so assembly builds this instead of map[string]any for anything that
// reaches the wire.
type OrderedObject struct {
	keys   []string
	values map[string]any
}

// NewOrderedObject returns an empty, ready-to-populate object.
func NewOrderedObject() *OrderedObject {
	return &OrderedObject{values: make(map[string]any)}
}

// Set assigns key, appending it to the key order the first time it is
// seen and leaving its position unchanged on overwrite.
func (o *OrderedObject) Set(key string, v any) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns key's value, if set.
func (o *OrderedObject) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Delete removes key from both the value map and the key order.
func (o *OrderedObject) Delete(key string) {
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the object's keys in insertion order.
func (o *OrderedObject) Keys() []string { return o.keys }

// Len reports the number of keys set.
func (o *OrderedObject) Len() int { return len(o.keys) }

// MarshalJSON writes the object's keys in insertion order, rather than
// the alphabetical order encoding/json gives a plain map.
func (o *OrderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// reorderForFhir rebuilds obj as an OrderedObject following FHIR's
// conventional child order: resourceType, id, meta, implicitRules,
// language, then every other
// already-set key in the order children were assembled, with
// Bundle.entry reordered so fullUrl sits right after the slot `link`
// would otherwise occupy (spec 4.7 step 8).
func reorderForFhir(obj *OrderedObject, resourceType string) *OrderedObject {
	out := NewOrderedObject()
	if resourceType != "" {
		out.Set("resourceType", resourceType)
	}
	for _, lead := range []string{"id", "meta", "implicitRules", "language"} {
		if v, ok := obj.Get(lead); ok {
			out.Set(lead, v)
		}
	}
	for _, k := range obj.Keys() {
		switch k {
		case "id", "meta", "implicitRules", "language":
			continue
		}
		out.Set(k, obj.values[k])
	}
	if resourceType == "Bundle" {
		injectBundleFullURL(out)
	}
	return out
}

// injectBundleFullURL implements spec 4.7 step 8's Bundle-specific fix
// up: each Bundle.entry that carries a `resource` and no `fullUrl` gets
// one synthesized from the resource's id, inserted right before
// `resource` (the slot `link` would otherwise separate it from).
func injectBundleFullURL(bundle *OrderedObject) {
	entries, ok := bundle.Get("entry")
	if !ok {
		return
	}
	arr, ok := entries.([]any)
	if !ok {
		return
	}
	for i, e := range arr {
		entry, ok := e.(*OrderedObject)
		if !ok {
			continue
		}
		if _, has := entry.Get("fullUrl"); has {
			continue
		}
		res, ok := entry.Get("resource")
		if !ok {
			continue
		}
		resObj, ok := res.(*OrderedObject)
		if !ok {
			continue
		}
		resType, _ := resObj.Get("resourceType")
		id, hasID := resObj.Get("id")
		if !hasID {
			continue
		}
		fullURL := "urn:uuid:" + asString(id)
		if rt := asString(resType); rt != "" {
			fullURL = rt + "/" + asString(id)
		}
		fixed := NewOrderedObject()
		for _, k := range entry.Keys() {
			if k == "resource" {
				fixed.Set("fullUrl", fullURL)
			}
			v, _ := entry.Get(k)
			fixed.Set(k, v)
		}
		arr[i] = fixed
	}
	bundle.Set("entry", arr)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
