package main

import (
	"context"
	"errors"
	"net"

	"github.com/deveshyaara/Healthlink-RPC-sub007/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized", "forbidden":
			lines = append(lines, "hint: verify HEALTHLINK_API_TOKEN or log in with: healthlink login <username> --password-stdin")
		case "ledger_failed":
			lines = append(lines, "hint: the Fabric peer rejected or never acknowledged the transaction; check peer health and retry the submission yourself.")
		case "integrity":
			lines = append(lines, "hint: stored content no longer matches its digest; restore the blob from a backup before serving it.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify HEALTHLINK_API_URL points to a healthlink server.")
		}
		if apiErr.Status >= 500 && apiErr.Code != "ledger_failed" && apiErr.Code != "integrity" {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase HEALTHLINK_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a healthlink server is running at HEALTHLINK_API_URL.",
			"hint: start the local server manually with: healthlink srv",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
