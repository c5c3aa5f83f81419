package api

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/adfharrison1/go-docrepo/pkg/query"
)

// reservedParams are query parameters that shape the result instead of filtering
var reservedParams = map[string]bool{
	"limit":   true,
	"page":    true,
	"order":   true,
	"search":  true,
	"include": true,
}

// HandleFindWithFilter handles GET requests listing a class. Every query
// parameter that is not reserved becomes an equality filter; a value holding
// "|" matches any of its parts.
func (h *Handler) HandleFindWithFilter(w http.ResponseWriter, r *http.Request) {
	c, ok := h.begin(w, r)
	if !ok {
		return
	}

	d, err := descriptorFromParams(r.URL.Query())
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := c.repo.Retrieve(c.ctx, d, c.opts...)
	if err != nil {
		writeRepositoryError(w, err)
		return
	}

	h.log.Info("find completed", "class", c.repo.ClassName(), "filters", len(d.Filters), "results", len(page.Results))
	writeJSON(w, http.StatusOK, page)
}

func descriptorFromParams(params url.Values) (*query.Descriptor, error) {
	d := query.New()

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := params.Get(key)
		if reservedParams[key] || value == "" {
			continue
		}
		if strings.Contains(value, "|") {
			d.Where(key, query.OpIn, value)
			continue
		}
		d.Where(key, query.OpEq, parseParam(value))
	}

	for _, name := range []string{"limit", "page"} {
		raw := params.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &paramError{name: name, value: raw}
		}
		if name == "limit" {
			d.Options.Limit = n
		} else {
			d.Options.Page = n
		}
	}

	for _, field := range strings.Split(params.Get("order"), ",") {
		field = strings.TrimSpace(field)
		switch {
		case field == "":
		case strings.HasPrefix(field, "-"):
			d.Options.Sort = d.Options.Sort.Desc(field[1:])
		default:
			d.Options.Sort = d.Options.Sort.Asc(field)
		}
	}

	d.Search = params.Get("search")
	for _, path := range strings.Split(params.Get("include"), ",") {
		if path = strings.TrimSpace(path); path != "" {
			d.Expand(path)
		}
	}
	return d, nil
}

// parseParam converts numeric and boolean parameters, leaving everything else a string
func parseParam(value string) interface{} {
	if num, err := strconv.ParseFloat(value, 64); err == nil {
		return num
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + " parameter: " + strconv.Quote(e.value)
}
