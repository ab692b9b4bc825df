// Package search parses the run search box: AND-ed comparisons over
// metrics, params, tags and run attributes, e.g.
//
//	metrics.rmse < 1 and params.model = "tree"
package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type ClauseType string

const (
	TypeMetric    ClauseType = "metric"
	TypeParam     ClauseType = "parameter"
	TypeTag       ClauseType = "tag"
	TypeAttribute ClauseType = "attribute"
)

var typeAliases = map[string]ClauseType{
	"metric":     TypeMetric,
	"metrics":    TypeMetric,
	"parameter":  TypeParam,
	"parameters": TypeParam,
	"param":      TypeParam,
	"params":     TypeParam,
	"tag":        TypeTag,
	"tags":       TypeTag,
	"attribute":  TypeAttribute,
	"attributes": TypeAttribute,
	"attr":       TypeAttribute,
	"run":        TypeAttribute,
}

var (
	metricComparators = map[string]bool{">": true, ">=": true, "!=": true, "=": true, "<": true, "<=": true}
	stringComparators = map[string]bool{"=": true, "!=": true}
)

// AttributeKeys are the run attributes a clause may compare.
var AttributeKeys = map[string]bool{
	"status":       true,
	"artifact_uri": true,
	"user_id":      true,
	"run_name":     true,
	"run_id":       true,
}

// Clause is one comparison. Number is set for metric clauses.
type Clause struct {
	Type       ClauseType
	Key        string
	Comparator string
	Value      string
	Number     float64
}

// ParseError carries the message shown next to the search box.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return e.Message }

func errorf(format string, args ...any) error {
	return &ParseError{Message: fmt.Sprintf(format, args...)}
}

// Parse turns search input into clauses. Blank input yields no clauses.
func Parse(input string) ([]Clause, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	var clauses []Clause
	for i := 0; i < len(tokens); {
		if len(clauses) > 0 {
			if tokens[i].kind != tokenAnd {
				return nil, errorf("Invalid clause(s) in filter string: '%s'", tokens[i].text)
			}
			i++
			if i == len(tokens) {
				return nil, errorf("Invalid filter '%s'. Expected a comparison after AND", input)
			}
		}
		if len(tokens)-i < 3 {
			return nil, errorf("Invalid comparison clause. Expected 3 tokens found %d", len(tokens)-i)
		}
		c, err := parseComparison(tokens[i], tokens[i+1], tokens[i+2])
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
		i += 3
	}
	return clauses, nil
}

func parseComparison(ident, op, value token) (Clause, error) {
	if ident.kind != tokenIdent {
		return Clause{}, errorf("Invalid comparison clause. Expected 'Identifier' found '%s'", ident.text)
	}
	if op.kind != tokenOp {
		return Clause{}, errorf("Invalid comparison clause. Expected comparison found '%s'", op.text)
	}
	if value.kind != tokenString && value.kind != tokenNumber {
		return Clause{}, errorf("Invalid comparison clause. Expected value token found '%s'", value.text)
	}

	clauseType, ok := typeAliases[ident.entity]
	if !ok {
		return Clause{}, errorf("Invalid search expression type '%s'. Valid values are [metric parameter tag attribute]", ident.entity)
	}
	c := Clause{Type: clauseType, Key: ident.key, Comparator: op.text}
	if c.Key == "" {
		return Clause{}, errorf("Invalid filter string '%s'. Expected a key after '%s.'", ident.text, ident.entity)
	}

	switch clauseType {
	case TypeMetric:
		if !metricComparators[c.Comparator] {
			return Clause{}, errorf("Invalid comparator '%s' not one of '%s'", c.Comparator, setString(metricComparators))
		}
		if value.kind != tokenNumber {
			return Clause{}, errorf("Expected numeric value type for metric. Found %s", value.text)
		}
		n, err := strconv.ParseFloat(value.text, 64)
		if err != nil {
			return Clause{}, errorf("Expected numeric value type for metric. Found %s", value.text)
		}
		c.Value = value.text
		c.Number = n
	case TypeAttribute:
		if !AttributeKeys[c.Key] {
			return Clause{}, errorf("Invalid attribute key '%s' specified. Valid keys are '%s'", c.Key, setString(AttributeKeys))
		}
		fallthrough
	default:
		if !stringComparators[c.Comparator] {
			return Clause{}, errorf("Invalid comparator '%s' not one of '%s'", c.Comparator, setString(stringComparators))
		}
		if value.kind != tokenString {
			return Clause{}, errorf("Expected a quoted string value for %s (e.g. 'my-value'). Got value %s", clauseType, value.text)
		}
		c.Value = value.text
	}
	return c, nil
}

func setString(set map[string]bool) string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

var serverPrefix = map[ClauseType]string{
	TypeMetric:    "metrics",
	TypeParam:     "params",
	TypeTag:       "tags",
	TypeAttribute: "attributes",
}

// FilterString renders clauses in the tracking server's filter syntax.
func FilterString(clauses []Clause) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		key := c.Key
		if !plainKey(key) {
			key = "`" + key + "`"
		}
		value := c.Value
		if c.Type != TypeMetric {
			if strings.Contains(value, "'") {
				value = `"` + value + `"`
			} else {
				value = "'" + value + "'"
			}
		}
		parts = append(parts, fmt.Sprintf("%s.%s %s %s", serverPrefix[c.Type], key, c.Comparator, value))
	}
	return strings.Join(parts, " AND ")
}

func plainKey(key string) bool {
	for _, r := range key {
		if !(r == '_' || r == '.' || r == '-' || r == '/' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return key != ""
}
