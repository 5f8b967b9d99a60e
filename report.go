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

package fumifier

import "github.com/mechanik-daniel/fumifier/fumierr"

// Report is EvaluateVerbose's return value (spec 6,
// "evaluateVerbose(input, bindings?)"): the evaluation result alongside
// every diagnostic collected during the call, even when none of them
// were severe enough to throw.
type Report struct {
	Ok          bool
	Status      int
	Result      any
	Err         error
	Diagnostics *fumierr.Bag
	ExecutionID string
}
