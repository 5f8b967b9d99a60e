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

package builtin

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mechanik-daniel/fumifier/internal/eval"
	"github.com/mechanik-daniel/fumifier/internal/token"
	"github.com/mechanik-daniel/fumifier/internal/value"
)

// registerStrings installs spec 4.9's string functions: string,
// substring, substringBefore, substringAfter, lowercase, uppercase,
// length, trim, pad, match, contains, replace, split, join,
// formatNumber, formatBase, startsWith, endsWith, initCap/initCapOnce,
// base64encode/decode, encodeUrl(Component)/decodeUrl(Component).
func registerStrings(root *eval.Frame) {
	register(root, "string", "<x-b?:s>", biString)
	register(root, "substring", "<s-nn?:s>", biSubstring)
	register(root, "substringBefore", "<s-s:s>", biSubstringBefore)
	register(root, "substringAfter", "<s-s:s>", biSubstringAfter)
	register(root, "lowercase", "<s-:s>", biLowercase)
	register(root, "uppercase", "<s-:s>", biUppercase)
	register(root, "length", "<s-:n>", biLength)
	register(root, "trim", "<s-:s>", biTrim)
	register(root, "pad", "<s-ns?:s>", biPad)
	register(root, "match", "<s-(sf)n?:a<o>>", biMatch)
	register(root, "contains", "<s-(sf):b>", biContains)
	register(root, "replace", "<s-(sf)(sf)n?:s>", biReplace)
	register(root, "split", "<s-(sf)n?:a<s>>", biSplit)
	register(root, "join", "<a<s>s?:s>", biJoin)
	register(root, "formatNumber", "<n-so?:s>", biFormatNumber)
	register(root, "formatBase", "<n-n?:s>", biFormatBase)
	register(root, "startsWith", "<s-s:b>", biStartsWith)
	register(root, "endsWith", "<s-s:b>", biEndsWith)
	register(root, "initCap", "<s-:s>", biInitCap)
	register(root, "initCapOnce", "<s-:s>", biInitCapOnce)
	register(root, "base64encode", "<s-:s>", biBase64Encode)
	register(root, "base64decode", "<s-:s>", biBase64Decode)
	register(root, "encodeUrl", "<s-:s>", biEncodeUrl)
	register(root, "encodeUrlComponent", "<s-:s>", biEncodeUrlComponent)
	register(root, "decodeUrl", "<s-:s>", biDecodeUrl)
	register(root, "decodeUrlComponent", "<s-:s>", biDecodeUrlComponent)
}

// jsonOf converts a runtime value to its JSON text (spec 4.9's $string,
// used also by the trace/warn/info diagnostics helpers in logic.go).
func jsonOf(v any) (string, error) {
	v = value.Collapse(v)
	switch x := v.(type) {
	case nil:
		return "undefined", nil
	case string:
		return x, nil
	case *apd.Decimal:
		return x.String(), nil
	}
	b, err := json.Marshal(toJSONable(v))
	if err != nil {
		return "", errf("string", "%s", err.Error())
	}
	return string(b), nil
}

func toJSONable(v any) any {
	switch x := v.(type) {
	case *value.Sequence:
		items := make([]any, len(x.Items))
		for i, it := range x.Items {
			items[i] = toJSONable(it)
		}
		return items
	case []any:
		items := make([]any, len(x))
		for i, it := range x {
			items[i] = toJSONable(it)
		}
		return items
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = toJSONable(val)
		}
		return m
	case *apd.Decimal:
		f, _ := x.Float64()
		return f
	default:
		return x
	}
}

func biString(cctx *value.CallContext, args []any) (any, error) {
	v := value.Collapse(arg(args, 0))
	if value.IsUndefined(v) {
		return nil, nil
	}
	s, err := jsonOf(v)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func biSubstring(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("substring", args, 0)
	if err != nil {
		return nil, err
	}
	r := []rune(s)
	start, _, err := argNum("substring", args, 1)
	if err != nil {
		return nil, err
	}
	length := len(r) - clampIndex(int(start), len(r))
	if lf, hasLen, lerr := argNum("substring", args, 2); lerr == nil && hasLen {
		length = int(lf)
	} else if lerr != nil {
		return nil, lerr
	}
	from := clampIndex(int(start), len(r))
	to := from + length
	if length < 0 {
		to = from
	}
	if from < 0 {
		from = 0
	}
	if to > len(r) {
		to = len(r)
	}
	if from > to {
		return "", nil
	}
	return string(r[from:to]), nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		i = n + i
		if i < 0 {
			i = 0
		}
	}
	return i
}

func biSubstringBefore(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("substringBefore", args, 0)
	if err != nil {
		return nil, err
	}
	sep, err := argStr("substringBefore", args, 1)
	if err != nil {
		return nil, err
	}
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i], nil
	}
	return s, nil
}

func biSubstringAfter(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("substringAfter", args, 0)
	if err != nil {
		return nil, err
	}
	sep, err := argStr("substringAfter", args, 1)
	if err != nil {
		return nil, err
	}
	if i := strings.Index(s, sep); i >= 0 {
		return s[i+len(sep):], nil
	}
	return s, nil
}

func biLowercase(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("lowercase", args, 0)
	if err != nil {
		return nil, err
	}
	return cases.Lower(language.Und).String(s), nil
}

func biUppercase(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("uppercase", args, 0)
	if err != nil {
		return nil, err
	}
	return cases.Upper(language.Und).String(s), nil
}

func biLength(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("length", args, 0)
	if err != nil {
		return nil, err
	}
	return float64(len([]rune(s))), nil
}

func biTrim(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("trim", args, 0)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(s)
	return strings.Join(fields, " "), nil
}

func biPad(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("pad", args, 0)
	if err != nil {
		return nil, err
	}
	width, _, err := argNum("pad", args, 1)
	if err != nil {
		return nil, err
	}
	padChar := " "
	if p, err := argStr("pad", args, 2); err == nil && p != "" {
		padChar = p
	} else if err != nil {
		return nil, err
	}
	n := int(width)
	r := []rune(s)
	need := n
	if need < 0 {
		need = -need
	}
	if len(r) >= need {
		return s, nil
	}
	fill := strings.Repeat(padChar, need-len(r))
	fillR := []rune(fill)[:need-len(r)]
	if n >= 0 {
		return s + string(fillR), nil
	}
	return string(fillR) + s, nil
}

func regexOrStringArg(name string, args []any, i int) (*value.Regex, string, error) {
	v := value.Collapse(arg(args, i))
	if re, ok := v.(*value.Regex); ok {
		return re, "", nil
	}
	if s, ok := v.(string); ok {
		return nil, s, nil
	}
	return nil, "", errf(name, "argument %d must be a string or regex", i+1)
}

func biMatch(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("match", args, 0)
	if err != nil {
		return nil, err
	}
	re, lit, err := regexOrStringArg("match", args, 1)
	if err != nil {
		return nil, err
	}
	if re == nil {
		re, err = value.CompileRegex(lit, "", token.NoPos)
		if err != nil {
			return nil, err
		}
	}
	limit := -1
	if f, ok, err := argNum("match", args, 2); err == nil && ok {
		limit = int(f)
	} else if err != nil {
		return nil, err
	}
	matches := re.FindAll(s)
	out := make([]any, 0, len(matches))
	for i, m := range matches {
		if limit >= 0 && i >= limit {
			break
		}
		groups := make([]any, len(m.Groups))
		for gi, g := range m.Groups {
			groups[gi] = g
		}
		out = append(out, map[string]any{
			"match":  m.Value,
			"index":  float64(m.Start),
			"groups": groups,
		})
	}
	return out, nil
}

func biContains(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("contains", args, 0)
	if err != nil {
		return nil, err
	}
	re, lit, err := regexOrStringArg("contains", args, 1)
	if err != nil {
		return nil, err
	}
	if re != nil {
		return re.Test(s), nil
	}
	return strings.Contains(s, lit), nil
}

func biReplace(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("replace", args, 0)
	if err != nil {
		return nil, err
	}
	re, lit, err := regexOrStringArg("replace", args, 1)
	if err != nil {
		return nil, err
	}
	replV := value.Collapse(arg(args, 2))
	limit := -1
	if f, ok, err := argNum("replace", args, 3); err == nil && ok {
		limit = int(f)
	} else if err != nil {
		return nil, err
	}
	if fn, ok := replV.(*value.Function); ok {
		if re == nil {
			re, err = value.CompileRegex(lit, "", token.NoPos)
			if err != nil {
				return nil, err
			}
		}
		matches := re.FindAll(s)
		var b strings.Builder
		last := 0
		for i, m := range matches {
			if limit >= 0 && i >= limit {
				break
			}
			groups := make([]any, len(m.Groups))
			for gi, g := range m.Groups {
				groups[gi] = g
			}
			res, err := callFn(cctx, fn, []any{map[string]any{
				"match": m.Value, "index": float64(m.Start), "groups": groups,
			}})
			if err != nil {
				return nil, err
			}
			repl, _ := value.Collapse(res).(string)
			b.WriteString(s[last:m.Start])
			b.WriteString(repl)
			last = m.End
		}
		b.WriteString(s[last:])
		return b.String(), nil
	}
	repl, _ := replV.(string)
	if re != nil {
		if limit < 0 {
			return re.ReplaceAll(s, repl), nil
		}
		matches := re.FindAll(s)
		var b strings.Builder
		last := 0
		for i, m := range matches {
			if i >= limit {
				break
			}
			b.WriteString(s[last:m.Start])
			b.WriteString(repl)
			last = m.End
		}
		b.WriteString(s[last:])
		return b.String(), nil
	}
	if limit < 0 {
		return strings.ReplaceAll(s, lit, repl), nil
	}
	return strings.Replace(s, lit, repl, limit), nil
}

func biSplit(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("split", args, 0)
	if err != nil {
		return nil, err
	}
	limit := -1
	if f, ok, err := argNum("split", args, 2); err == nil && ok {
		limit = int(f)
	} else if err != nil {
		return nil, err
	}
	re, lit, err := regexOrStringArg("split", args, 1)
	if err != nil {
		return nil, err
	}
	var parts []string
	if re != nil {
		matches := re.FindAll(s)
		last := 0
		for _, m := range matches {
			parts = append(parts, s[last:m.Start])
			last = m.End
		}
		parts = append(parts, s[last:])
	} else if lit == "" {
		for _, r := range s {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(s, lit)
	}
	if limit >= 0 && limit < len(parts) {
		parts = parts[:limit]
	}
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func biJoin(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	sep := ""
	if s, err := argStr("join", args, 1); err == nil {
		sep = s
	} else {
		return nil, err
	}
	parts := make([]string, len(items))
	for i, it := range items {
		s, ok := value.Collapse(it).(string)
		if !ok {
			return nil, errf("join", "argument must be an array of strings")
		}
		parts[i] = s
	}
	return strings.Join(parts, sep), nil
}

func biFormatNumber(cctx *value.CallContext, args []any) (any, error) {
	f, _, err := argNum("formatNumber", args, 0)
	if err != nil {
		return nil, err
	}
	picture, err := argStr("formatNumber", args, 1)
	if err != nil {
		return nil, err
	}
	return formatPicture(f, picture), nil
}

// formatPicture implements a practical subset of XPath/JSONata's decimal
// picture string: comma grouping and fixed fraction digits are honored;
// percent/per-mille suffixes and other picture features are not.
func formatPicture(f float64, picture string) string {
	if picture == "" {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	neg := f < 0
	if neg {
		f = -f
	}
	intPart := strings.SplitN(picture, ".", 2)
	fracDigits := 0
	if len(intPart) == 2 {
		fracDigits = strings.Count(intPart[1], "0")
	}
	grouped := strings.Contains(intPart[0], ",")
	s := strconv.FormatFloat(f, 'f', fracDigits, 64)
	sign := ""
	if neg {
		sign = "-"
	}
	parts := strings.SplitN(s, ".", 2)
	ip := parts[0]
	if grouped {
		ip = groupDigits(ip)
	}
	if len(parts) == 2 {
		return sign + ip + "." + parts[1]
	}
	return sign + ip
}

func groupDigits(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func biFormatBase(cctx *value.CallContext, args []any) (any, error) {
	f, _, err := argNum("formatBase", args, 0)
	if err != nil {
		return nil, err
	}
	base := 10
	if b, ok, err := argNum("formatBase", args, 1); err == nil && ok {
		base = int(b)
	} else if err != nil {
		return nil, err
	}
	if base < 2 || base > 36 {
		return nil, errf("formatBase", "radix must be between 2 and 36")
	}
	return strconv.FormatInt(int64(f), base), nil
}

func biStartsWith(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("startsWith", args, 0)
	if err != nil {
		return nil, err
	}
	prefix, err := argStr("startsWith", args, 1)
	if err != nil {
		return nil, err
	}
	return strings.HasPrefix(s, prefix), nil
}

func biEndsWith(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("endsWith", args, 0)
	if err != nil {
		return nil, err
	}
	suffix, err := argStr("endsWith", args, 1)
	if err != nil {
		return nil, err
	}
	return strings.HasSuffix(s, suffix), nil
}

func biInitCap(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("initCap", args, 0)
	if err != nil {
		return nil, err
	}
	return cases.Title(language.Und).String(s), nil
}

func biInitCapOnce(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("initCapOnce", args, 0)
	if err != nil {
		return nil, err
	}
	r := []rune(s)
	if len(r) == 0 {
		return s, nil
	}
	first := cases.Upper(language.Und).String(string(r[0]))
	return first + string(r[1:]), nil
}

func biBase64Encode(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("base64encode", args, 0)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.EncodeToString([]byte(s)), nil
}

func biBase64Decode(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("base64decode", args, 0)
	if err != nil {
		return nil, err
	}
	b, decErr := base64.StdEncoding.DecodeString(s)
	if decErr != nil {
		return nil, errf("base64decode", "%s", decErr.Error())
	}
	return string(b), nil
}

func biEncodeUrl(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("encodeUrl", args, 0)
	if err != nil {
		return nil, err
	}
	u, perr := url.Parse(s)
	if perr != nil {
		return nil, errf("encodeUrl", "%s", perr.Error())
	}
	return u.String(), nil
}

func biEncodeUrlComponent(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("encodeUrlComponent", args, 0)
	if err != nil {
		return nil, err
	}
	return url.QueryEscape(s), nil
}

func biDecodeUrl(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("decodeUrl", args, 0)
	if err != nil {
		return nil, err
	}
	out, uerr := url.QueryUnescape(s)
	if uerr != nil {
		return nil, errf("decodeUrl", "%s", uerr.Error())
	}
	return out, nil
}

func biDecodeUrlComponent(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("decodeUrlComponent", args, 0)
	if err != nil {
		return nil, err
	}
	out, uerr := url.QueryUnescape(s)
	if uerr != nil {
		return nil, errf("decodeUrlComponent", "%s", uerr.Error())
	}
	return out, nil
}
