package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oss-fun/chiwawa/api"
)

// parseParams parses spec.md §6's --params syntax: a comma-separated list of
// I32(n) | I64(n) | F32(x) | F64(x) entries.
func parseParams(s string) ([]api.Val, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	vals := make([]api.Val, len(parts))
	for i, p := range parts {
		v, err := parseParam(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("param %d (%q): %w", i, p, err)
		}
		vals[i] = v
	}
	return vals, nil
}

func parseParam(p string) (api.Val, error) {
	open := strings.IndexByte(p, '(')
	if open < 0 || !strings.HasSuffix(p, ")") {
		return api.Val{}, fmt.Errorf("expected TYPE(value)")
	}
	kind := p[:open]
	body := p[open+1 : len(p)-1]

	switch kind {
	case "I32":
		n, err := strconv.ParseInt(body, 10, 32)
		if err != nil {
			return api.Val{}, err
		}
		return api.I32(int32(n)), nil
	case "I64":
		n, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return api.Val{}, err
		}
		return api.I64(n), nil
	case "F32":
		f, err := strconv.ParseFloat(body, 32)
		if err != nil {
			return api.Val{}, err
		}
		return api.F32(float32(f)), nil
	case "F64":
		f, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return api.Val{}, err
		}
		return api.F64(f), nil
	}
	return api.Val{}, fmt.Errorf("unrecognized type %q", kind)
}
