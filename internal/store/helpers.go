package store

import (
	"encoding/json"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// int64sToArgs converts []int64 to []any for use with database/sql.
func int64sToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// marshalArgs converts message arguments to JSON text for storage.
func marshalArgs(args []string) string {
	if len(args) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(args)
	return string(b)
}

// unmarshalArgs converts JSON text back to message arguments.
func unmarshalArgs(s string) []string {
	if s == "" || s == "null" || s == "[]" {
		return nil
	}
	var args []string
	_ = json.Unmarshal([]byte(s), &args)
	return args
}
