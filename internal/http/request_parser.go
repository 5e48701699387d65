// Package http serves the ledger over a small JSON API.
//
// This file implements parsing of submission bodies and query parameters.
// Bodies may be JSON or form encoded; field names accept both the German
// keys used by the sheet clients and their English aliases.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"strafen/internal/core"
)

// maxBodyBytes caps submission bodies.
const maxBodyBytes = 64 << 10

var errMissingName = errors.New("missing query parameter: name")

// Keys accepted for each submission field, in lookup order.
var (
	dateKeys       = []string{"date", "datum"}
	nameKeys       = []string{"name"}
	infractionKeys = []string{"vergehen", "infraction"}
	manualCostKeys = []string{"kosten_manuell", "manual_cost"}
	remarkKeys     = []string{"anmerkung", "remark"}
)

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body of r once, up to maxBodyBytes.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// First returns the first non-empty value among keys.
func (p *RequestBodyParser) First(keys ...string) string {
	for _, k := range keys {
		if v := p.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Submission builds the submission carried by the body. It does not
// validate the result.
func (p *RequestBodyParser) Submission() core.Submission {
	return core.Submission{
		Date:       p.First(dateKeys...),
		Name:       p.First(nameKeys...),
		Infraction: p.First(infractionKeys...),
		ManualCost: p.First(manualCostKeys...),
		Remark:     p.First(remarkKeys...),
	}
}

// stringValue converts a decoded JSON value to string. null reads as empty.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// memberParam returns the required "name" query parameter.
func memberParam(r *http.Request) (string, error) {
	name := strings.TrimSpace(sanitizeInput(r.URL.Query().Get("name")))
	if name == "" {
		return "", errMissingName
	}
	return name, nil
}
