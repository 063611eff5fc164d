package domain

// Cookie is the opaque continuation state the plugin returns on every reply
// and the host re-delivers on subsequent calls for the same session. Values
// must stay JSON round-trippable: after a trip through the host a nested map
// comes back as map[string]any regardless of how it was written.
type Cookie map[string]any

func (c Cookie) Clone() Cookie {
	if c == nil {
		return Cookie{}
	}
	out := make(Cookie, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, inner := range value {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, inner := range value {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

// Merge overlays other onto a copy of c; keys in other win.
func (c Cookie) Merge(other Cookie) Cookie {
	out := c.Clone()
	for k, v := range other {
		out[k] = cloneValue(v)
	}
	return out
}

func (c Cookie) String(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c Cookie) Has(key string) bool {
	_, ok := c[key]
	return ok
}

func (c Cookie) Bool(key string) bool {
	v, _ := c[key].(bool)
	return v
}

// SubMap returns the nested map under key, tolerating both the in-process
// and the post-JSON representation.
func (c Cookie) SubMap(key string) map[string]any {
	switch value := c[key].(type) {
	case map[string]any:
		return value
	case Cookie:
		return value
	default:
		return nil
	}
}

// EnsureSubMap returns the nested map under key, creating it when absent.
func (c Cookie) EnsureSubMap(key string) map[string]any {
	if m := c.SubMap(key); m != nil {
		return m
	}
	m := map[string]any{}
	c[key] = m
	return m
}
