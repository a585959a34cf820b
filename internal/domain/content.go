package domain

import (
	"bytes"
	"encoding/json"
)

// ParseContent decodes page content stored either as a JSON array of blocks
// or as a JSON string holding such an array. Any other shape yields an empty
// slice. Array elements that are not objects are dropped.
func ParseContent(raw []byte) []Block {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []Block{}
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return []Block{}
		}
		return ParseContent([]byte(inner))
	}
	if raw[0] != '[' {
		return []Block{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []Block{}
	}
	blocks := make([]Block, 0, len(items))
	for _, item := range items {
		var b Block
		if err := json.Unmarshal(item, &b); err != nil {
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks
}

// EncodeContent is the storage form of a block list.
func EncodeContent(blocks []Block) (string, error) {
	if blocks == nil {
		blocks = []Block{}
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
