package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Reply is the result of parsing model output: Parsed or Malformed.
type Reply interface {
	isReply()
}

// Parsed holds the fields of a well-formed reply. Keys are lower case.
type Parsed struct {
	Fields map[string]string
}

// Malformed is a reply that did not carry the required fields.
type Malformed struct {
	Raw    string
	Reason string
}

func (Parsed) isReply()    {}
func (Malformed) isReply() {}

// String returns the trimmed field value.
func (p Parsed) String(key string) string {
	return strings.TrimSpace(p.Fields[strings.ToLower(key)])
}

// Bool parses a yes/no style field. ok is false when absent or unparseable.
func (p Parsed) Bool(key string) (value, ok bool) {
	v, present := p.Fields[strings.ToLower(key)]
	if !present {
		return false, false
	}
	switch strings.ToLower(strings.Trim(strings.TrimSpace(v), `."'`)) {
	case "true", "yes", "y", "correct", "1":
		return true, true
	case "false", "no", "n", "incorrect", "wrong", "0":
		return false, true
	}
	return false, false
}

// ParseStructured extracts fields from model output. It accepts a JSON
// object (possibly wrapped in prose or a code fence) or "key: value"
// lines. The reply is Malformed unless every required key is present.
func ParseStructured(raw string, required ...string) Reply {
	fields, ok := parseJSONObject(raw)
	if !ok {
		fields = parseKeyValueLines(raw)
	}
	if len(fields) == 0 {
		return Malformed{Raw: raw, Reason: "no fields found"}
	}
	for _, key := range required {
		if _, present := fields[strings.ToLower(key)]; !present {
			return Malformed{Raw: raw, Reason: fmt.Sprintf("missing field %q", key)}
		}
	}
	return Parsed{Fields: fields}
}

func parseJSONObject(raw string) (map[string]string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return nil, false
	}
	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		key := strings.ToLower(strings.TrimSpace(k))
		switch val := v.(type) {
		case string:
			fields[key] = val
		case bool:
			fields[key] = strconv.FormatBool(val)
		case float64:
			fields[key] = strconv.FormatFloat(val, 'g', -1, 64)
		case nil:
			fields[key] = ""
		default:
			b, _ := json.Marshal(val)
			fields[key] = string(b)
		}
	}
	return fields, true
}

func parseKeyValueLines(raw string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• "))
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.Trim(strings.TrimSpace(key), "*_`"))
		if key == "" || len(strings.Fields(key)) > 3 {
			continue
		}
		key = strings.ReplaceAll(key, " ", "_")
		if _, dup := fields[key]; dup {
			continue
		}
		fields[key] = strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "*"))
	}
	return fields
}
