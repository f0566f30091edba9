package models

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ClampInt parses raw as a base-10 integer and clamps it to [min, max].
// Input that does not parse clamps to min.
func ClampInt(raw string, min, max int) int {
	digits := leadingInt(strings.TrimSpace(raw))
	n, err := strconv.Atoi(digits)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(digits, "-") {
		return max
	}
	if err != nil {
		return min
	}
	return clamp(n, min, max)
}

// leadingInt keeps the optional sign and the digits that prefix s, so "12abc"
// reads as 12 the way a number input does.
func leadingInt(s string) string {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

func clamp(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func GenerateTableID() string {
	return uuid.New().String()
}

func IsTableID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
