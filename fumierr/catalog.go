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

import "strconv"

// Catalog is the string->template table keyed by error code (spec 6,
// "Error catalog"). Placeholders use {{field}} for JSON-stringified
// values and {{{field}}} for raw substitution, rendered by Render.
var Catalog = map[string]string{
	// Lexer (S01xx, S03xx) — always fatal.
	"S0101": "Unterminated string literal",
	"S0102": "Number out of range: {{{value}}}",
	"S0103": "Unsupported escape sequence: \\{{{char}}}",
	"S0104": "The escape sequence \\u{{{code}}} is not a well formed unicode escape",
	"S0105": "Unterminated quoted name",
	"S0106": "Unterminated comment",
	"S0302": "Unterminated regular expression",

	// Parser (S02xx, S05xx) — always fatal.
	"S0201": "Syntax error: {{{token}}}",
	"S0202": "Expected {{{expected}}}, got {{{actual}}}",
	"S0203": "Expected {{{expected}}} before end of expression",
	"S0204": "Unknown operator: {{{token}}}",
	"S0205": "Unexpected token: {{{token}}}",
	"S0206": "Unexpected end of expression",
	"S0207": "Unexpected end of path expression",
	"S0208": "Parameter {{{param}}} of function signature is not valid",
	"S0209": "A predicate cannot follow a grouping expression in a step",
	"S0210": "Each step can only have one grouping expression",
	"S0211": "The symbol {{{token}}} cannot be used as a unary operator",
	"S0212": "The left side of {{{operator}}} must be a number",
	"S0213": "The literal value {{{value}}} cannot be used as a step within a path expression",
	"S0214": "The right side of {{{operator}}} must be a variable name",
	"S0215": "A context variable binding must precede any predicates on a step",
	"S0216": "A context variable binding must precede the 'order-by' clause on a step",
	"S0217": "The object representing the 'parent' cannot be derived from this expression",
	"S0301": "Empty regular expressions are not allowed",
	"S0401": "Unable to resolve JSON pointer",
	"S0500": "Attempted to evaluate a recovered error node: {{{code}}}",

	// FLASH parse (F1xxx) — fatal.
	"F1001": "Flash path {{{path}}} must not start with '$'",
	"F1002": "Flash path {{{path}}} must not end with '='",
	"F1010": "InstanceOf: must be followed by a recognized profile or type name",
	"F1011": "Instance: declaration is missing a matching InstanceOf:",
	"F1012": "Instance: and InstanceOf: must share the same indentation",
	"F1017": "Indentation increased by more than one level inside a flash block",
	"F1018": "A flash rule's subrules must be indented exactly two spaces further than the rule",
	"F1021": "Inconsistent indentation: expected a multiple of 2 spaces",
	"F1100": "Unmatched closing {{{bracket}}}",
	"F1101": "Expected a comma between array elements",
	"F1102": "A colon cannot appear inside an array constructor here",
	"F1103": "Duplicate comma in list",
	"F1104": "Unmatched opening {{{bracket}}}",
	"F1110": "A flash slice name must not be empty",

	// FLASH semantic-parse / resolution (F2xxx) — fatal unless recover=true.
	"F2001": "Unknown InstanceOf target: {{{instanceof}}}",
	"F2002": "Element not found: {{{path}}}",
	"F2003": "Ambiguous slice: {{{slice}}} on {{{path}}}",
	"F2004": "Element {{{path}}} is polymorphic; qualify it with one of: {{{names}}}",
	"F2005": "Value set not found: {{{url}}}",
	"F2006": "Could not expand value set: {{{url}}}",
	"F2007": "Element {{{path}}} declares no type",
	"F2008": "Could not resolve base type for {{{code}}}",

	// FLASH evaluation sanity checks (F3xxx) — fatal, indicate a
	// corrupted/unresolved AST.
	"F3000": "Compiled expression contains flash constructs but no flash evaluator is configured",
	"F3001": "Flash node at {{{path}}} was never resolved against a structure navigator",
	"F3002": "Virtual rule for slice {{{slice}}} produced no AST",
	"F3003": "Unexpected kind {{{kind}}} while assembling flash result",

	// Evaluator type/runtime (T0xxx-T2xxx) — always fatal.
	"T0410": "Argument {{{index}}} of function {{{name}}} does not match function signature",
	"T0411": "Context value is not a compatible type with argument {{{index}}} of function {{{name}}}",
	"T0412": "Argument {{{index}}} of function {{{name}}} must be an array of {{{type}}}",
	"T1001": "Argument passed to function {{{name}}} is not callable",
	"T1003": "Key in object structure must evaluate to a string; got {{{type}}}",
	"T1005": "Attempted to invoke a non-function. Did you mean ${{{name}}}?",
	"T1006": "Attempted to invoke a non-function",
	"T2001": "The left side of the {{{operator}}} operator must evaluate to a number",
	"T2002": "The right side of the {{{operator}}} operator must evaluate to a number",
	"T2003": "The left side of the range operator (..) must evaluate to an integer",
	"T2004": "The right side of the range operator (..) must evaluate to an integer",
	"T2006": "The right side of the function application operator ~> must be a function",
	"T2007": "Type mismatch when comparing values {{{lhs}}} and {{{rhs}}} in order-by clause",
	"T2008": "The expressions within an order-by clause must evaluate to numeric or string values",
	"T2009": "The values {{{lhs}}} and {{{rhs}}} either side of operator {{{operator}}} must be of the same data type",
	"T2010": "The expressions either side of operator {{{operator}}} must evaluate to numeric or string values",
	"T2013": "The literal value {{{value}}} cannot be used as a step within a path expression",

	// Evaluator data errors (D1xxx-D3xxx) — always fatal.
	"D1001": "Number out of range: {{{value}}}",
	"D1002": "Cannot negate a non-numeric value",
	"D1009": "Multiple key definitions evaluate to same key: {{{key}}}",
	"D2014": "The size of the sequence allocated by the range operator (..) must not exceed 10000000. Attempted to allocate {{{size}}}",
	"D3001": "Attempting to invoke a non-function",
	"D3120": "Syntax error in expression passed to function eval: {{{message}}}",
	"D3121": "Dynamic error evaluating the expression passed to function eval: {{{message}}}",
	"D3141": "$single() applied to a sequence containing more than one argument",
	"D3050": "{{{message}}}",

	// Policy-governed FLASH (F5xyy) — severity is the two-digit band.
	"F5110": "Value '{{{value}}}' does not match the expected pattern for {{{fhirElement}}}",
	"F5111": "Value '{{{value}}}' is not a valid calendar date/time for {{{fhirElement}}}",
	"F5112": "String value for {{{fhirElement}}} must contain at least one non-whitespace character",
	"F5113": "Code value for {{{fhirElement}}} must not contain leading/trailing or consecutive whitespace",
	"F5114": "Value for {{{fhirElement}}} exceeds the maximum length of {{{maxLength}}}",
	"F5120": "Missing required binding to value set {{{valueSet}}} for {{{fhirElement}}}",
	"F5121": "Code '{{{code}}}' from system '{{{system}}}' is not in the required value set {{{valueSet}}}",
	"F5122": "No coding in {{{fhirElement}}} is a member of required value set {{{valueSet}}}",
	"F5123": "CodeableConcept {{{fhirElement}}} has no coding member of required value set {{{valueSet}}}",
	"F5130": "Missing mandatory element {{{fhirElement}}} (min={{{min}}})",
	"F5131": "Element {{{fhirElement}}} is forbidden (max=0) but a value was supplied",
	"F5140": "Mandatory slice {{{slice}}} of {{{fhirElement}}} could not be generated",
	"F5200": "Terminology server returned an error for {{{url}}}",
	"F5220": "HTTP error while resolving {{{url}}}: {{{status}}}",
	"F5310": "Could not validate required binding for {{{fhirElement}}}: value set expansion failed",
	"F5311": "Required binding for {{{fhirElement}}} was not validated: value set expansion deferred (lazy mode)",
	"F5320": "{{{message}}}",
	"F5330": "Could not validate extensible binding for {{{fhirElement}}}: value set expansion failed",
	"F5331": "Extensible binding for {{{fhirElement}}} was not validated: value set expansion deferred (lazy mode)",
	"F5340": "Code '{{{code}}}' from system '{{{system}}}' is not in the extensible value set {{{valueSet}}}",
	"F5341": "No coding in {{{fhirElement}}} is a member of extensible value set {{{valueSet}}}",
	"F5342": "CodeableConcept {{{fhirElement}}} has no coding member of extensible value set {{{valueSet}}}",
	"F5343": "Value for {{{fhirElement}}} is not a recognized member of extensible value set {{{valueSet}}}",
	"F5500": "{{{message}}}",
	"F5600": "{{{message}}}",
}

// SeverityOf derives the numeric severity for code per spec 4.8: F5xyy
// codes encode severity as the two-digit band following "F5"; every
// other code is always-fatal, severity 0.
func SeverityOf(code string) int {
	if len(code) >= 4 && code[:2] == "F5" {
		if n, err := strconv.Atoi(code[2:4]); err == nil {
			return n
		}
	}
	return 0
}

// IsPolicyGoverned reports whether code is routed through the policy
// engine (F5xyy) rather than thrown unconditionally.
func IsPolicyGoverned(code string) bool {
	return len(code) >= 2 && code[:2] == "F5"
}

// LevelName maps a severity number to the diagnostic bucket name used in
// the diagnostics bag (spec 3, "Diagnostic entry" / spec 4.8 buckets).
func LevelName(severity int) string {
	switch {
	case severity < 30:
		return "error"
	case severity < 40:
		return "warning"
	default:
		return "debug"
	}
}
