package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/solardash/internal/dashboard"
)

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseBool accepts the values browsers send for checkboxes.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// parseQuery reads the dashboard selection from the URL.
//
// Keys may be repeated (key=A&key=B) or comma separated (keys=A,B).
func parseQuery(r *http.Request) dashboard.Query {
	q := r.URL.Query()

	var keys []string
	for _, k := range q["key"] {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	for _, list := range q["keys"] {
		for _, k := range strings.Split(list, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}

	return dashboard.Query{
		Dataset: strings.TrimSpace(q.Get("dataset")),
		Keys:    keys,
		All:     parseBool(q.Get("all")),
		Metric:  strings.TrimSpace(q.Get("metric")),
		Top:     parseIntParam(r, "top", 0),
		Search:  strings.TrimSpace(q.Get("q")),
		Raw:     parseBool(q.Get("raw")),
		Page:    parseIntParam(r, "page", 1),
	}
}

// viewValues encodes a resolved view back into query parameters, so that
// the chart and downloads see exactly the selection the page shows.
func viewValues(datasetID string, v *dashboard.View) url.Values {
	vals := url.Values{}
	if datasetID != "" {
		vals.Set("dataset", datasetID)
	}
	if v.All {
		vals.Set("all", "1")
	} else {
		keys := v.Selected
		if len(keys) == 0 {
			keys = v.Requested
		}
		for _, k := range keys {
			vals.Add("key", k)
		}
	}
	vals.Set("metric", v.Metric)
	vals.Set("top", strconv.Itoa(v.Top))
	if v.Search != "" {
		vals.Set("q", v.Search)
	}
	if v.Raw {
		vals.Set("raw", "1")
	}
	return vals
}

func withPath(path string, vals url.Values) string {
	if len(vals) == 0 {
		return path
	}
	return path + "?" + vals.Encode()
}

// downloadName is the attachment name for a filtered export.
func downloadName(metric, ext string) string {
	return "solar_data_" + safeFileToken(metric) + "." + ext
}

func safeFileToken(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "data"
	}
	return b.String()
}

// pageRows slices rows for the JSON API regardless of the raw flag.
func pageRows(v *dashboard.View) [][]string {
	from := (v.Page - 1) * v.PageSize
	return v.Display.Rows(from, from+v.PageSize)
}
