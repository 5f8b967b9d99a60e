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
	"strconv"
	"time"

	"github.com/mechanik-daniel/fumifier/internal/eval"
	"github.com/mechanik-daniel/fumifier/internal/value"
)

// registerDatetime installs spec 4.9's date/time functions: now, millis,
// toMillis, fromMillis, formatInteger, parseInteger, rightNow, wait.
// $now/$millis read the per-call Global.Timestamp (spec
// 4.5: "a single evaluate() call sees one frozen timestamp") so repeated
// calls within one evaluation are deterministic; $rightNow samples the
// wall clock directly, bypassing that freeze, for callers that need the
// live time during a long-running evaluation.
func registerDatetime(root *eval.Frame) {
	register(root, "now", "<s?s?:s>", biNow)
	register(root, "millis", "<:n>", biMillis)
	register(root, "toMillis", "<s-s?:n>", biToMillis)
	register(root, "fromMillis", "<n-s?s?:s>", biFromMillis)
	register(root, "formatInteger", "<n-s:s>", biFormatInteger)
	register(root, "parseInteger", "<s-s:n>", biParseInteger)
	register(root, "rightNow", "<:s>", biRightNow)
	register(root, "wait", "<n:n>", biWait)
}

func frameOf(cctx *value.CallContext) *eval.Frame {
	fr, _ := cctx.Environment.(*eval.Frame)
	return fr
}

func callTimestamp(cctx *value.CallContext) int64 {
	if fr := frameOf(cctx); fr != nil && fr.Global() != nil {
		return fr.Global().Timestamp
	}
	return time.Now().UnixMilli()
}

func biNow(cctx *value.CallContext, args []any) (any, error) {
	ms := callTimestamp(cctx)
	t := time.UnixMilli(ms).UTC()
	return t.Format(time.RFC3339), nil
}

func biMillis(cctx *value.CallContext, args []any) (any, error) {
	return float64(callTimestamp(cctx)), nil
}

func biToMillis(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("toMillis", args, 0)
	if err != nil {
		return nil, err
	}
	t, terr := time.Parse(time.RFC3339, s)
	if terr != nil {
		t, terr = time.Parse("2006-01-02T15:04:05", s)
	}
	if terr != nil {
		t, terr = time.Parse("2006-01-02", s)
	}
	if terr != nil {
		return nil, errf("toMillis", "unable to parse %q as a timestamp", s)
	}
	return float64(t.UnixMilli()), nil
}

func biFromMillis(cctx *value.CallContext, args []any) (any, error) {
	f, _, err := argNum("fromMillis", args, 0)
	if err != nil {
		return nil, err
	}
	t := time.UnixMilli(int64(f)).UTC()
	return t.Format(time.RFC3339), nil
}

func biFormatInteger(cctx *value.CallContext, args []any) (any, error) {
	f, _, err := argNum("formatInteger", args, 0)
	if err != nil {
		return nil, err
	}
	picture, err := argStr("formatInteger", args, 1)
	if err != nil {
		return nil, err
	}
	switch picture {
	case "w", "W", "Ww":
		return strconv.FormatInt(int64(f), 10), nil
	default:
		return formatPicture(f, picture), nil
	}
}

func biParseInteger(cctx *value.CallContext, args []any) (any, error) {
	s, err := argStr("parseInteger", args, 0)
	if err != nil {
		return nil, err
	}
	n, perr := strconv.ParseInt(s, 10, 64)
	if perr != nil {
		return nil, errf("parseInteger", "unable to parse %q as an integer", s)
	}
	return float64(n), nil
}

func biRightNow(cctx *value.CallContext, args []any) (any, error) {
	return time.Now().UTC().Format(time.RFC3339Nano), nil
}

// biWait implements $wait(ms): a deliberate, bounded pause, used in FLASH
// test fixtures that exercise ordering under concurrency. Honors ctx
// cancellation so a caller-side timeout interrupts it promptly.
func biWait(cctx *value.CallContext, args []any) (any, error) {
	f, _, err := argNum("wait", args, 0)
	if err != nil {
		return nil, err
	}
	d := time.Duration(f) * time.Millisecond
	if cctx.Ctx != nil {
		select {
		case <-time.After(d):
		case <-cctx.Ctx.Done():
			return nil, cctx.Ctx.Err()
		}
	} else {
		time.Sleep(d)
	}
	return f, nil
}
