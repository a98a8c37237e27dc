package variants

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// QualityMap maps a size to its JPEG quality.
type QualityMap map[int]int

// ParseQualityMap parses the flag form `{"1600":92,"800":90,"400":85}`.
func ParseQualityMap(s string) (QualityMap, error) {
	var raw map[string]int
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("parse quality map: %w", err)
	}
	q := make(QualityMap, len(raw))
	for k, v := range raw {
		size, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("parse quality map: size %q: %w", k, err)
		}
		if v < 1 || v > 100 {
			return nil, fmt.Errorf("parse quality map: quality %d for size %d out of range", v, size)
		}
		q[size] = v
	}
	return q, nil
}

// For returns the quality for size, or fallback.
func (q QualityMap) For(size, fallback int) int {
	if v, ok := q[size]; ok {
		return v
	}
	return fallback
}
