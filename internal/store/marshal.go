package store

import (
	"encoding/json"
	"fmt"
)

// marshalParams stores parameter names as a JSON array.
func marshalParams(params []string) (string, error) {
	if params == nil {
		params = []string{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

func unmarshalParams(data string) ([]string, error) {
	params := []string{}
	if data == "" {
		return params, nil
	}
	if err := json.Unmarshal([]byte(data), &params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	return params, nil
}
