package runlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/itchyny/gojq"
)

// maxLineSize bounds a single serialized record when scanning history.
const maxLineSize = 4 * 1024 * 1024

// ReadHistory loads all run records from a JSONL log file, oldest first.
// A missing file yields no records. Lines that fail to decode (for example
// a partial line after a crash mid-append) are skipped.
func ReadHistory(path string) ([]RunRecord, error) {
	f, err := os.Open(path) //#nosec G304 -- path comes from user settings
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	defer f.Close()

	var records []RunRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record RunRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run log: %w", err)
	}
	return records, nil
}

// Query evaluates a jq expression against each record and returns every
// value the expression emits, in record order. An empty expression returns
// the records unchanged.
func Query(records []RunRecord, expression string) ([]any, error) {
	if expression == "" {
		out := make([]any, len(records))
		for i := range records {
			v, err := toPlain(records[i])
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}

	var results []any
	for i := range records {
		value, err := toPlain(records[i])
		if err != nil {
			return nil, err
		}
		iter := code.Run(value)
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := v.(error); isErr {
				return nil, fmt.Errorf("eval error: %w", err)
			}
			results = append(results, v)
		}
	}
	return results, nil
}

// toPlain converts a record to the plain map/slice/float64 shape gojq
// operates on.
func toPlain(record RunRecord) (any, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return value, nil
}
