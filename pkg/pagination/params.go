package pagination

import (
	"maps"
	"net/url"
	"sort"
)

// Wire names of the identity parameters.
const (
	ParamAPIKey   = "api_key"
	ParamEngine   = "engine"
	ParamQuery    = "q"
	ParamAuthorID = "author_id"
	ParamLanguage = "hl"
)

// ParameterSet is the request state for one logical retrieval.
//
// Identity fields stay fixed for the whole retrieval. Extra holds everything
// else (start, pagesize, after_author, ...) and is what cursors update.
type ParameterSet struct {
	APIKey   string
	Engine   string
	Query    string
	AuthorID string
	Language string

	Extra map[string]string
}

// IsIdentityKey reports whether key names an identity parameter.
func IsIdentityKey(key string) bool {
	switch key {
	case ParamAPIKey, ParamEngine, ParamQuery, ParamAuthorID, ParamLanguage:
		return true
	}
	return false
}

// Get returns the value for a wire key, identity or extra.
func (p ParameterSet) Get(key string) (string, bool) {
	switch key {
	case ParamAPIKey:
		return p.APIKey, p.APIKey != ""
	case ParamEngine:
		return p.Engine, p.Engine != ""
	case ParamQuery:
		return p.Query, p.Query != ""
	case ParamAuthorID:
		return p.AuthorID, p.AuthorID != ""
	case ParamLanguage:
		return p.Language, p.Language != ""
	}
	v, ok := p.Extra[key]
	return v, ok
}

// With returns a copy of p with an extra key set.
func (p ParameterSet) With(key, value string) ParameterSet {
	out := p.Clone()
	out.Extra[key] = value
	return out
}

// Without returns a copy of p with an extra key removed.
func (p ParameterSet) Without(key string) ParameterSet {
	out := p.Clone()
	delete(out.Extra, key)
	return out
}

// Clone returns a deep copy of p.
func (p ParameterSet) Clone() ParameterSet {
	out := p
	out.Extra = make(map[string]string, len(p.Extra))
	maps.Copy(out.Extra, p.Extra)
	return out
}

// Merge folds a cursor-derived partial set into p and returns the result.
// Keys absent from partial persist; identity keys are never overwritten.
func (p ParameterSet) Merge(partial map[string]string) ParameterSet {
	out := p.Clone()
	for k, v := range partial {
		if IsIdentityKey(k) {
			continue
		}
		out.Extra[k] = v
	}
	return out
}

// Values renders p as a URL query.
func (p ParameterSet) Values() url.Values {
	v := p.CacheKeyValues()
	if p.APIKey != "" {
		v.Set(ParamAPIKey, p.APIKey)
	}
	return v
}

// CacheKeyValues is Values without the credential.
func (p ParameterSet) CacheKeyValues() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set(ParamEngine, p.Engine)
	set(ParamQuery, p.Query)
	set(ParamAuthorID, p.AuthorID)
	set(ParamLanguage, p.Language)
	for k, val := range p.Extra {
		v.Set(k, val)
	}
	return v
}

// ExtraKeys returns the extra keys in sorted order.
func (p ParameterSet) ExtraKeys() []string {
	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
