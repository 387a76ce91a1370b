package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
)

// Rule is one admission quota: a bucket capacity and its refill rate in
// tokens per second.
type Rule struct {
	Capacity   int
	RefillRate float64
}

// ParseRules parses the configuration surface for the limiter, a string of
// the form "class:count/period[,class:count/period...]", for example
// "key:60/m,write:10/m,ip:600/5m". Periods are s, m, h, optionally prefixed
// with an integer multiplier (5m, 12h).
func ParseRules(s string) (map[Class]Rule, error) {
	rules := make(map[Class]Rule)
	for _, spec := range strings.Split(s, ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		class, rate, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("rate rule %q: want class:count/period", spec)
		}
		switch Class(class) {
		case ClassKey, ClassWrite, ClassIP:
		default:
			return nil, fmt.Errorf("rate rule %q: unknown class %q", spec, class)
		}
		rule, err := parseRate(strings.TrimSpace(rate))
		if err != nil {
			return nil, fmt.Errorf("rate rule %q: %w", spec, err)
		}
		rules[Class(strings.TrimSpace(class))] = rule
	}
	return rules, nil
}

func parseRate(s string) (Rule, error) {
	count, period, ok := strings.Cut(s, "/")
	if !ok {
		return Rule{}, fmt.Errorf("want count/period, got %q", s)
	}
	capacity, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || capacity <= 0 {
		return Rule{}, fmt.Errorf("count must be a positive integer, got %q", count)
	}
	seconds, err := periodSeconds(strings.TrimSpace(period))
	if err != nil {
		return Rule{}, err
	}
	return Rule{
		Capacity:   capacity,
		RefillRate: float64(capacity) / float64(seconds),
	}, nil
}

func periodSeconds(p string) (int, error) {
	if p == "" {
		return 0, fmt.Errorf("empty period")
	}
	unit := p[len(p)-1]
	mult := 1
	if len(p) > 1 {
		n, err := strconv.Atoi(p[:len(p)-1])
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("bad period multiplier in %q", p)
		}
		mult = n
	}
	switch unit {
	case 's':
		return mult, nil
	case 'm':
		return mult * 60, nil
	case 'h':
		return mult * 3600, nil
	}
	return 0, fmt.Errorf("unknown period unit %q", string(unit))
}
