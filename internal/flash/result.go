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

// RuleResult is the outcome of evaluating one flash rule or
// contextualized rule (spec 4.7 step 10, "FlashRuleResult {key, kind,
// value}"). A rule that assigns into an array-typed element, or whose
// inline expression evaluates to an array against a complex-type/
// resource (spec 4.7 step 3), yields more than one RuleResult sharing
// the same Key.
type RuleResult struct {
	Key       string // the JSON property name this result targets
	SliceName string // non-empty for a non-base-polymorphic slice, grouped as "key:sliceName"
	Value     any
}

// groupKey is the bucketing key sub-expression evaluation groups
// RuleResults under (spec 4.7 step 2: "appended under its grouping key
// (json name, plus :sliceName if non-base-polymorphic sliced)").
func (r RuleResult) groupKey() string {
	if r.SliceName != "" {
		return r.Key + ":" + r.SliceName
	}
	return r.Key
}
