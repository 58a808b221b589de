package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OutcomeKind classifies a candidate line.
type OutcomeKind int

const (
	// OutcomeEmpty is a blank line between or after records.
	OutcomeEmpty OutcomeKind = iota
	// OutcomeRecord is a complete JSON object.
	OutcomeRecord
	// OutcomeFragment is an unterminated tail that is not yet a record.
	OutcomeFragment
	// OutcomeMalformed is a terminated line that is not a JSON object.
	OutcomeMalformed
)

// ParseOutcome is the result of classifying one candidate line.
type ParseOutcome struct {
	Kind     OutcomeKind
	Record   json.RawMessage
	Fragment []byte
	Err      error
}

// Classify inspects a candidate line. terminated reports whether the line
// was followed by the record delimiter. Records never contain a raw newline,
// so a terminated line that does not parse can not be completed by a later
// chunk.
func Classify(line []byte, terminated bool) ParseOutcome {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return ParseOutcome{Kind: OutcomeEmpty}
	}

	err := parseObject(trimmed)
	if err == nil {
		return ParseOutcome{
			Kind:   OutcomeRecord,
			Record: append(json.RawMessage(nil), trimmed...),
		}
	}

	if !terminated {
		return ParseOutcome{Kind: OutcomeFragment, Fragment: line}
	}

	return ParseOutcome{Kind: OutcomeMalformed, Err: err}
}

func parseObject(data []byte) error {
	if data[0] != '{' {
		return fmt.Errorf("not a JSON object")
	}

	var obj map[string]json.RawMessage

	return json.Unmarshal(data, &obj)
}
