package model

import (
	"encoding/json"
	"fmt"
)

// EncodeSection validates record against key and serializes it as a row.
func EncodeSection(key SectionKey, record any) (Row, error) {
	var probe Content
	if err := probe.SetSection(key, record); err != nil {
		return Row{}, err
	}
	rec, err := probe.Section(key)
	if err != nil {
		return Row{}, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return Row{}, fmt.Errorf("encode section %s: %w", key, err)
	}
	return Row{Key: key.String(), Data: data}, nil
}

// Rows splits content into one row per section, in page order.
func (c *Content) Rows() ([]Row, error) {
	rows := make([]Row, 0, len(sectionKeys))
	for _, key := range sectionKeys {
		rec, err := c.Section(key)
		if err != nil {
			return nil, err
		}
		row, err := EncodeSection(key, rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Encode serializes the whole content mapping.
func Encode(c *Content) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return data, nil
}
