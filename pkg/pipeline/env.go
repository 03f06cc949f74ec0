package pipeline

import (
	"sort"
	"strings"
)

// Env holds the environment pointers published by the stages of a run.
type Env struct {
	vars map[string]string
}

// NewEnv creates an empty environment.
func NewEnv() Env {
	return Env{vars: make(map[string]string)}
}

// Set sets the named pointer.
func (e Env) Set(name, value string) {
	e.vars[name] = value
}

// Get returns the named pointer and whether it was set.
func (e Env) Get(name string) (string, bool) {
	v, ok := e.vars[name]

	return v, ok
}

// Keys returns the pointer names, sorted.
func (e Env) Keys() []string {
	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Clone returns a copy of the environment.
func (e Env) Clone() Env {
	c := NewEnv()
	for k, v := range e.vars {
		c.vars[k] = v
	}

	return c
}

// Environ returns base with the pointers applied on top of it, in the KEY=value form used by
// os/exec. Variables of base overridden by a pointer are dropped, the pointers follow in name order.
func (e Env) Environ(base []string) []string {
	res := make([]string, 0, len(base)+len(e.vars))

	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, ok := e.vars[name]; ok {
			continue
		}

		res = append(res, kv)
	}

	for _, k := range e.Keys() {
		res = append(res, k+"="+e.vars[k])
	}

	return res
}
