package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"spendsync/internal/core"
	"spendsync/internal/views"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// RequestBodyParser reads a JSON object or a form-encoded body. Values are
// returned as strings either way; JSON numbers keep their exact text.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the body of r once.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}
	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		p.err = dec.Decode(&p.jsonData)
		return p.err
	}
	p.formData, p.err = url.ParseQuery(string(trimmed))
	return p.err
}

// Get returns a trimmed value from the parsed body.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseDraft collects expense form fields. Validation happens in the tab.
func ParseDraft(p *RequestBodyParser) core.Draft {
	return core.Draft{
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		Date:        p.Get("date"),
		Description: p.Get("description"),
	}
}

// ParseProfile reads a full profile. A missing salary is zero.
func ParseProfile(p *RequestBodyParser) (core.Profile, error) {
	profile := core.Profile{Name: p.Get("name")}
	if raw := p.Get("monthlySalary"); raw != "" {
		salary, err := core.ParseAmount(raw)
		if err != nil {
			return core.Profile{}, err
		}
		profile.MonthlySalary = salary
	}
	return profile, nil
}

// ParseFilter reads the filter fields from a getter, the query string or the body.
func ParseFilter(get func(string) string) (views.Filter, error) {
	return views.ParseFilter(get("period"), get("category"), get("startDate"), get("endDate"))
}

// RequireMethod returns an error response when r uses none of methods.
func RequireMethod(r *http.Request, methods ...string) *ResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}
