package crontab

import "strings"

// Env is an insertion-ordered set of environment variables.
// Replacing an existing name keeps its original position.
type Env struct {
	names []string
	vals  map[string]string
}

func NewEnv() *Env {
	return &Env{vals: map[string]string{}}
}

// ParseEnviron builds an Env from "NAME=value" strings. Entries without '='
// are ignored; later duplicates replace earlier values.
func ParseEnviron(kv []string) *Env {
	e := NewEnv()
	for _, s := range kv {
		name, val, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		e.Set(strings.TrimSpace(name), val)
	}
	return e
}

func (e *Env) Get(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e.vals[name]
	return v, ok
}

func (e *Env) Set(name, val string) {
	if _, ok := e.vals[name]; !ok {
		e.names = append(e.names, name)
	}
	e.vals[name] = val
}

// SetDefault inserts name only if absent and reports whether it did.
func (e *Env) SetDefault(name, val string) bool {
	if _, ok := e.vals[name]; ok {
		return false
	}
	e.Set(name, val)
	return true
}

// Environ renders "NAME=value" pairs in insertion order, the form exec expects.
func (e *Env) Environ() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.names))
	for _, n := range e.names {
		out = append(out, n+"="+e.vals[n])
	}
	return out
}

// Clone returns an independent copy. Cloning nil yields an empty Env.
func (e *Env) Clone() *Env {
	cp := NewEnv()
	if e == nil {
		return cp
	}
	cp.names = append(cp.names, e.names...)
	for k, v := range e.vals {
		cp.vals[k] = v
	}
	return cp
}
