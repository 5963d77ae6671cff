package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fenceStartRe = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	fenceEndRe   = regexp.MustCompile("(?is)\\s*```\\s*$")
)

// cleanLLMJSONResponse quita fences ```json ... ``` y BOM, dejando el contenido usable.
func cleanLLMJSONResponse(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "\uFEFF")
	s = fenceStartRe.ReplaceAllString(s, "")
	s = fenceEndRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func extractFirstJSONObject(input string) string {
	return extractFirstJSON(input, '{', '}')
}

func extractFirstJSONArray(input string) string {
	return extractFirstJSON(input, '[', ']')
}

// extractFirstJSON devuelve el primer bloque balanceado opening...closing, ignorando
// delimitadores dentro de strings. "" si no hay bloque completo.
func extractFirstJSON(input string, opening, closing byte) string {
	start := strings.IndexByte(input, opening)
	if start == -1 {
		return ""
	}

	inString := false
	escape := false
	depth := 0

	for i := start; i < len(input); i++ {
		ch := input[i]

		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case opening:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}

// decodeLLMList acepta una lista JSON suelta o un objeto que la envuelve bajo key
// (por ejemplo {"themes": [...]}). Tolera fences y texto alrededor.
func decodeLLMList[T any](raw, key string) ([]T, error) {
	cleaned := cleanLLMJSONResponse(raw)

	var block string
	objIdx := strings.IndexByte(cleaned, '{')
	arrIdx := strings.IndexByte(cleaned, '[')
	if arrIdx != -1 && (objIdx == -1 || arrIdx < objIdx) {
		block = extractFirstJSONArray(cleaned)
		if block != "" {
			var items []T
			if err := json.Unmarshal([]byte(block), &items); err != nil {
				return nil, fmt.Errorf("unmarshal %s: %w", key, err)
			}
			return items, nil
		}
	}

	block = extractFirstJSONObject(cleaned)
	if block == "" {
		return nil, fmt.Errorf("no json in %s response", key)
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(block), &wrapper); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	inner, ok := wrapper[key]
	if !ok || string(inner) == "null" {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return items, nil
}
