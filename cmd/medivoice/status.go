package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/medivoice/medivoice/internal/tui"
)

// parseStatus reads the payload of a STATUS reply:
// status=polling recording=idle name="Visit" pending=false attempt=<id>
func parseStatus(payload string) (tui.Snapshot, error) {
	var snap tui.Snapshot
	rest := strings.TrimSpace(payload)
	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return tui.Snapshot{}, fmt.Errorf("malformed status %q", payload)
		}
		key := rest[:eq]
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return tui.Snapshot{}, fmt.Errorf("malformed %s in status: %w", key, err)
			}
			value, _ = strconv.Unquote(quoted)
			rest = rest[len(quoted):]
		} else {
			end := strings.IndexByte(rest, ' ')
			if end < 0 {
				end = len(rest)
			}
			value = rest[:end]
			rest = rest[end:]
		}
		rest = strings.TrimLeft(rest, " ")

		switch key {
		case "status":
			snap.Status = value
		case "recording":
			snap.Recording = value
		case "name":
			snap.Name = value
		case "pending":
			snap.Pending = value == "true"
		case "attempt":
			snap.Attempt = value
		}
	}
	if snap.Status == "" {
		return tui.Snapshot{}, fmt.Errorf("status missing in %q", payload)
	}
	return snap, nil
}
