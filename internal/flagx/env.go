package flagx

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Env reads typed values from the process environment. Lookup can be
// replaced in tests.
type Env struct {
	Lookup func(string) (string, bool)
}

// OSEnv reads from os.LookupEnv.
func OSEnv() Env {
	return Env{Lookup: os.LookupEnv}
}

// String overwrites *dst when key is set and non-empty.
func (e Env) String(key string, dst *string) {
	if v, ok := e.Lookup(key); ok && v != "" {
		*dst = v
	}
}

// List splits a comma separated value, trimming blanks.
func (e Env) List(key string, dst *[]string) {
	v, ok := e.Lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

// Duration accepts Go duration syntax ("90s", "24h").
func (e Env) Duration(key string, dst *time.Duration) error {
	v, ok := e.Lookup(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// Bool accepts anything strconv.ParseBool does.
func (e Env) Bool(key string, dst *bool) error {
	v, ok := e.Lookup(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}
