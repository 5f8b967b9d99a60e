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
	"math/rand"
	"sort"
	"sync"

	"github.com/mechanik-daniel/fumifier/internal/eval"
	"github.com/mechanik-daniel/fumifier/internal/value"
)

// registerAggregate installs the array/object functions of spec 4.9:
// sum, count, max, min, average, append, reverse, sort, shuffle,
// distinct, keys, lookup, exists, spread, merge, zip, each, sift, map,
// filter, first, single, reduce, pMap, pLimit.
func registerAggregate(root *eval.Frame) {
	register(root, "sum", "<a<n>:n>", biSum)
	register(root, "count", "<a:n>", biCount)
	register(root, "max", "<a<n>:n>", biMax)
	register(root, "min", "<a<n>:n>", biMin)
	register(root, "average", "<a<n>:n>", biAverage)
	register(root, "append", "<aa:a>", biAppend)
	register(root, "reverse", "<a:a>", biReverse)
	register(root, "sort", "<af?:a>", biSort)
	register(root, "shuffle", "<a:a>", biShuffle)
	register(root, "distinct", "<a:a>", biDistinct)
	register(root, "keys", "<x:a<s>>", biKeys)
	register(root, "lookup", "<x-s:x>", biLookup)
	register(root, "exists", "<x:b>", biExists)
	register(root, "spread", "<x:a<o>>", biSpread)
	register(root, "merge", "<a<o>:o>", biMerge)
	register(root, "zip", "<a+:a>", biZip)
	register(root, "each", "<o-f:a>", biEach)
	register(root, "sift", "<o-f:o>", biSift)
	register(root, "map", "<af:a>", biMap)
	register(root, "filter", "<af:a>", biFilter)
	register(root, "first", "<a:x>", biFirst)
	register(root, "single", "<a-f?:x>", biSingle)
	register(root, "reduce", "<afj?:j>", biReduce)
	register(root, "pMap", "<af:a>", biPMap)
	register(root, "pLimit", "<anf:a>", biPLimit)
}

func callFn(cctx *value.CallContext, fn *value.Function, args []any) (any, error) {
	if cctx.Apply == nil {
		return nil, errf("apply", "no evaluator context available for function invocation")
	}
	return cctx.Apply(fn, args)
}

func biSum(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	var total float64
	for _, it := range items {
		f, ok := value.ToFloat64(value.Collapse(it))
		if !ok {
			return nil, errf("sum", "array must contain only numbers")
		}
		total += f
	}
	return total, nil
}

func biCount(cctx *value.CallContext, args []any) (any, error) {
	v := value.Collapse(arg(args, 0))
	if value.IsUndefined(v) {
		return float64(0), nil
	}
	return float64(len(value.ToSlice(v))), nil
}

func biMax(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	if len(items) == 0 {
		return nil, nil
	}
	best, ok := value.ToFloat64(value.Collapse(items[0]))
	if !ok {
		return nil, errf("max", "array must contain only numbers")
	}
	for _, it := range items[1:] {
		f, ok := value.ToFloat64(value.Collapse(it))
		if !ok {
			return nil, errf("max", "array must contain only numbers")
		}
		if f > best {
			best = f
		}
	}
	return best, nil
}

func biMin(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	if len(items) == 0 {
		return nil, nil
	}
	best, ok := value.ToFloat64(value.Collapse(items[0]))
	if !ok {
		return nil, errf("min", "array must contain only numbers")
	}
	for _, it := range items[1:] {
		f, ok := value.ToFloat64(value.Collapse(it))
		if !ok {
			return nil, errf("min", "array must contain only numbers")
		}
		if f < best {
			best = f
		}
	}
	return best, nil
}

func biAverage(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	if len(items) == 0 {
		return nil, nil
	}
	var total float64
	for _, it := range items {
		f, ok := value.ToFloat64(value.Collapse(it))
		if !ok {
			return nil, errf("average", "array must contain only numbers")
		}
		total += f
	}
	return total / float64(len(items)), nil
}

func biAppend(cctx *value.CallContext, args []any) (any, error) {
	a := value.Collapse(arg(args, 0))
	b := value.Collapse(arg(args, 1))
	if value.IsUndefined(a) {
		return b, nil
	}
	if value.IsUndefined(b) {
		return a, nil
	}
	out := append([]any{}, value.ToSlice(a)...)
	out = append(out, value.ToSlice(b)...)
	return out, nil
}

func biReverse(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	out := make([]any, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	return out, nil
}

func defaultLess(a, b any) bool {
	af, aok := value.ToFloat64(a)
	bf, bok := value.ToFloat64(b)
	if aok && bok {
		return af < bf
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return false
}

func biSort(cctx *value.CallContext, args []any) (any, error) {
	items := append([]any{}, value.ToSlice(value.Collapse(arg(args, 0)))...)
	var fn *value.Function
	if len(args) > 1 {
		if f, ok := value.Collapse(args[1]).(*value.Function); ok {
			fn = f
		}
	}
	var sortErr error
	sort.SliceStable(items, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		if fn == nil {
			return defaultLess(items[i], items[j])
		}
		res, err := callFn(cctx, fn, []any{items[i], items[j]})
		if err != nil {
			sortErr = err
			return false
		}
		return !value.IsTruthy(value.Collapse(res))
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return items, nil
}

func biShuffle(cctx *value.CallContext, args []any) (any, error) {
	items := append([]any{}, value.ToSlice(value.Collapse(arg(args, 0)))...)
	rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	return items, nil
}

func biDistinct(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	out := make([]any, 0, len(items))
	for _, it := range items {
		dup := false
		for _, seen := range out {
			if value.DeepEqual(it, seen) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, it)
		}
	}
	return out, nil
}

func biKeys(cctx *value.CallContext, args []any) (any, error) {
	v := value.Collapse(arg(args, 0))
	seen := make(map[string]bool)
	var order []string
	collect := func(m map[string]any) {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
	}
	switch x := v.(type) {
	case map[string]any:
		collect(x)
	default:
		for _, it := range value.ToSlice(v) {
			if m, ok := value.Collapse(it).(map[string]any); ok {
				collect(m)
			}
		}
	}
	out := make([]any, len(order))
	for i, k := range order {
		out[i] = k
	}
	return out, nil
}

func biLookup(cctx *value.CallContext, args []any) (any, error) {
	key, err := argStr("lookup", args, 1)
	if err != nil {
		return nil, err
	}
	v := value.Collapse(arg(args, 0))
	switch x := v.(type) {
	case map[string]any:
		return x[key], nil
	default:
		seq := value.NewSequence()
		for _, it := range value.ToSlice(v) {
			if m, ok := value.Collapse(it).(map[string]any); ok {
				if r, ok := m[key]; ok {
					seq.Push(r)
				}
			}
		}
		return value.Collapse(seq), nil
	}
}

func biExists(cctx *value.CallContext, args []any) (any, error) {
	return !value.IsUndefined(value.Collapse(arg(args, 0))), nil
}

func biSpread(cctx *value.CallContext, args []any) (any, error) {
	v := value.Collapse(arg(args, 0))
	seq := value.NewSequence()
	spreadOne := func(m map[string]any) {
		for k, val := range m {
			seq.Push(map[string]any{k: val})
		}
	}
	switch x := v.(type) {
	case map[string]any:
		spreadOne(x)
	default:
		for _, it := range value.ToSlice(v) {
			if m, ok := value.Collapse(it).(map[string]any); ok {
				spreadOne(m)
			}
		}
	}
	return value.Collapse(seq), nil
}

func biMerge(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	out := make(map[string]any)
	for _, it := range items {
		m, ok := value.Collapse(it).(map[string]any)
		if !ok {
			continue
		}
		for k, v := range m {
			out[k] = v
		}
	}
	return out, nil
}

func biZip(cctx *value.CallContext, args []any) (any, error) {
	arrays := make([][]any, len(args))
	minLen := -1
	for i, a := range args {
		arrays[i] = value.ToSlice(value.Collapse(a))
		if minLen == -1 || len(arrays[i]) < minLen {
			minLen = len(arrays[i])
		}
	}
	if minLen < 0 {
		minLen = 0
	}
	out := make([]any, minLen)
	for i := 0; i < minLen; i++ {
		row := make([]any, len(arrays))
		for j := range arrays {
			row[j] = arrays[j][i]
		}
		out[i] = row
	}
	return out, nil
}

func biEach(cctx *value.CallContext, args []any) (any, error) {
	m, ok := value.Collapse(arg(args, 0)).(map[string]any)
	if !ok {
		return nil, nil
	}
	fn, err := argFn("each", args, 1)
	if err != nil {
		return nil, err
	}
	seq := value.NewSequence()
	keys := sortedKeys(m)
	for _, k := range keys {
		res, err := callFn(cctx, fn, []any{m[k], k})
		if err != nil {
			return nil, err
		}
		if !value.IsUndefined(value.Collapse(res)) {
			seq.Push(res)
		}
	}
	return value.Collapse(seq), nil
}

func biSift(cctx *value.CallContext, args []any) (any, error) {
	m, ok := value.Collapse(arg(args, 0)).(map[string]any)
	if !ok {
		return nil, nil
	}
	fn, err := argFn("sift", args, 1)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for _, k := range sortedKeys(m) {
		res, err := callFn(cctx, fn, []any{m[k], k})
		if err != nil {
			return nil, err
		}
		if value.IsTruthy(value.Collapse(res)) {
			out[k] = m[k]
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func biMap(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	fn, err := argFn("map", args, 1)
	if err != nil {
		return nil, err
	}
	seq := value.NewSequence()
	for i, it := range items {
		res, err := callFn(cctx, fn, []any{it, float64(i), items})
		if err != nil {
			return nil, err
		}
		if !value.IsUndefined(value.Collapse(res)) {
			seq.Push(res)
		}
	}
	return value.Collapse(seq), nil
}

func biFilter(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	fn, err := argFn("filter", args, 1)
	if err != nil {
		return nil, err
	}
	seq := value.NewSequence()
	for i, it := range items {
		res, err := callFn(cctx, fn, []any{it, float64(i), items})
		if err != nil {
			return nil, err
		}
		if value.IsTruthy(value.Collapse(res)) {
			seq.Push(it)
		}
	}
	return value.Collapse(seq), nil
}

func biFirst(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func biSingle(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	if len(args) > 1 {
		fn, err := argFn("single", args, 1)
		if err != nil {
			return nil, err
		}
		var match any
		found := false
		for i, it := range items {
			res, err := callFn(cctx, fn, []any{it, float64(i), items})
			if err != nil {
				return nil, err
			}
			if value.IsTruthy(value.Collapse(res)) {
				if found {
					return nil, errf("single", "more than one match found for predicate")
				}
				match, found = it, true
			}
		}
		if !found {
			return nil, errf("single", "no match found for predicate")
		}
		return match, nil
	}
	if len(items) != 1 {
		return nil, errf("single", "sequence contains more than one value")
	}
	return items[0], nil
}

func biReduce(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	fn, err := argFn("reduce", args, 1)
	if err != nil {
		return nil, err
	}
	var acc any
	start := 0
	if len(args) > 2 {
		acc = value.Collapse(args[2])
	} else if len(items) > 0 {
		acc, start = items[0], 1
	} else {
		return nil, nil
	}
	for i := start; i < len(items); i++ {
		res, err := callFn(cctx, fn, []any{acc, items[i], float64(i), items})
		if err != nil {
			return nil, err
		}
		acc = value.Collapse(res)
	}
	return acc, nil
}

func biPMap(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	fn, err := argFn("pMap", args, 1)
	if err != nil {
		return nil, err
	}
	results := make([]any, len(items))
	errs := make([]error, len(items))
	var wg sync.WaitGroup
	for i, it := range items {
		wg.Add(1)
		go func(i int, it any) {
			defer wg.Done()
			res, err := callFn(cctx, fn, []any{it, float64(i), items})
			results[i], errs[i] = res, err
		}(i, it)
	}
	wg.Wait()
	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}
	seq := value.NewSequence()
	for _, r := range results {
		if !value.IsUndefined(value.Collapse(r)) {
			seq.Push(r)
		}
	}
	return value.Collapse(seq), nil
}

// biPLimit implements bounded-concurrency mapping: <array, limit,
// function>. Work items run with at most `limit` concurrently in
// flight, preserving result order.
func biPLimit(cctx *value.CallContext, args []any) (any, error) {
	items := value.ToSlice(value.Collapse(arg(args, 0)))
	limitF, ok, err := argNum("pLimit", args, 1)
	if err != nil {
		return nil, err
	}
	limit := 1
	if ok && limitF >= 1 {
		limit = int(limitF)
	}
	fn, err := argFn("pLimit", args, 2)
	if err != nil {
		return nil, err
	}
	sem := make(chan struct{}, limit)
	results := make([]any, len(items))
	errs := make([]error, len(items))
	var wg sync.WaitGroup
	for i, it := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, it any) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := callFn(cctx, fn, []any{it, float64(i), items})
			results[i], errs[i] = res, err
		}(i, it)
	}
	wg.Wait()
	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}
	seq := value.NewSequence()
	for _, r := range results {
		if !value.IsUndefined(value.Collapse(r)) {
			seq.Push(r)
		}
	}
	return value.Collapse(seq), nil
}
