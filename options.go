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

import (
	"github.com/mechanik-daniel/fumifier/astcache"
	"github.com/mechanik-daniel/fumifier/navigator"
)

// compileConfig collects the options a Compile/CompileAST call accepts
// (spec 6, "compile(source, options?)").
type compileConfig struct {
	recover   bool
	navigator navigator.StructureNavigator
	cache     astcache.Cache
}

// Option configures a Compile or CompileAST call.
type Option func(*compileConfig)

// WithRecover enables spec 4.2/4.4's recoverable-error mode: syntax and
// definition-resolution errors are collected into Expr.Errors() instead
// of aborting compilation outright.
func WithRecover() Option {
	return func(c *compileConfig) { c.recover = true }
}

// WithNavigator supplies the external StructureNavigator a FLASH-
// bearing expression needs to resolve its `InstanceOf:`/element
// references (spec component H). Compiling a FLASH expression without
// one fails with F3000.
func WithNavigator(nav navigator.StructureNavigator) Option {
	return func(c *compileConfig) { c.navigator = nav }
}

// WithASTCache shares a parsed-expression cache across Compile calls
// (spec 1/3, "AST cache"), keyed by source text.
func WithASTCache(cache astcache.Cache) Option {
	return func(c *compileConfig) { c.cache = cache }
}

func newConfig(opts []Option) *compileConfig {
	cfg := &compileConfig{}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}
