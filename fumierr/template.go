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

package fumierr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Render substitutes inserts into the catalog template for code.
// {{{field}}} is replaced with the raw string form of the value;
// {{field}} is replaced with its JSON-stringified form (spec 6).
func Render(code string, inserts map[string]any) string {
	tmpl, ok := Catalog[code]
	if !ok {
		return fmt.Sprintf("unknown error code %s (inserts: %v)", code, inserts)
	}
	return renderTemplate(tmpl, inserts)
}

func renderTemplate(tmpl string, inserts map[string]any) string {
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		if strings.HasPrefix(tmpl[i:], "{{{") {
			if j := strings.Index(tmpl[i+3:], "}}}"); j >= 0 {
				field := tmpl[i+3 : i+3+j]
				b.WriteString(rawString(inserts[field]))
				i += 3 + j + 3
				continue
			}
		}
		if strings.HasPrefix(tmpl[i:], "{{") {
			if j := strings.Index(tmpl[i+2:], "}}"); j >= 0 {
				field := tmpl[i+2 : i+2+j]
				b.WriteString(jsonString(inserts[field]))
				i += 2 + j + 2
				continue
			}
		}
		b.WriteByte(tmpl[i])
		i++
	}
	return b.String()
}

func rawString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func jsonString(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
