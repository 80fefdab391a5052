package surrealdb

import (
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// conflictMarker is the message thrown by a failed version guard inside a batch.
const conflictMarker = "version conflict"

// isNotFoundError reports whether err is SurrealDB's way of saying the record is absent.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

func isConflictError(err error) bool {
	return err != nil && strings.Contains(err.Error(), conflictMarker)
}

// statementErrors collects the messages of statements that reported status ERR.
func statementErrors(results *[]surrealdb.QueryResult[any]) error {
	if results == nil {
		return nil
	}
	var msgs []string
	for _, r := range *results {
		if r.Status == "ERR" {
			msgs = append(msgs, fmt.Sprint(r.Result))
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("query failed: %s", strings.Join(msgs, "; "))
}
