package selection

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names shared with the browser page.
const (
	ParamLevel    = "level"
	ParamState    = "stateRel"
	ParamDistrict = "districtRel"
	ParamBasemap  = "basemap"
)

// Encode writes the four selection params. Unset ids encode as the empty string.
func Encode(s State) url.Values {
	v := url.Values{}
	v.Set(ParamLevel, string(s.Level))
	v.Set(ParamState, formatID(s.StateID))
	v.Set(ParamDistrict, formatID(s.DistrictID))
	v.Set(ParamBasemap, s.Basemap)
	return v
}

// QueryString returns the encoded selection without a leading '?'.
func (s State) QueryString() string {
	return Encode(s).Encode()
}

// Decode reads a selection from query params. It never fails: anything
// missing or unusable falls back to its default.
func Decode(v url.Values) State {
	s := Default()

	if l := Level(strings.TrimSpace(v.Get(ParamLevel))); l.Valid() {
		s.Level = l
	}
	s.StateID = parseID(v.Get(ParamState))
	if s.StateID != 0 {
		s.DistrictID = parseID(v.Get(ParamDistrict))
	}
	if b := strings.TrimSpace(v.Get(ParamBasemap)); b != "" {
		if _, err := LookupBasemap(b); err == nil {
			s.Basemap = b
		}
	}
	return s
}

// DecodeQuery parses a raw query string (with or without '?') into a selection.
func DecodeQuery(raw string) State {
	v, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil && v == nil {
		return Default()
	}
	return Decode(v)
}

// Merge rewrites the selection params of rawURL and keeps everything else.
// Params whose value is empty are removed.
func Merge(rawURL string, s State) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	q := u.Query()
	for k, vals := range Encode(s) {
		if len(vals) == 0 || vals[0] == "" {
			q.Del(k)
			continue
		}
		q.Set(k, vals[0])
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func formatID(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// parseID accepts only a whole positive decimal integer; anything else,
// including trailing garbage like "123abc", leaves the id unset.
func parseID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}
