package repo

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rogerio-castellano/cellar-console/internal/models"
)

func joinRoles(roles []string) string {
	return strings.Join(roles, ",")
}

func splitRoles(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func encodeDraft(d *models.Draft) (string, error) {
	if d == nil {
		return "", nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to encode draft: %w", err)
	}
	return string(data), nil
}

func decodeDraft(s string) (*models.Draft, error) {
	if s == "" {
		return nil, nil
	}
	var d models.Draft
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &d, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
