package oauth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// State is carried through the provider's redirect to identify the user.
type State struct {
	UserID string `json:"user_id"`
	Prompt string `json:"prompt,omitempty"`
}

// EncodeState renders s as base64url JSON.
func EncodeState(s State) string {
	raw, _ := json.Marshal(s)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeState parses a state value produced by EncodeState. Plain JSON is
// accepted as well. The user id may be a JSON string or number.
func DecodeState(v string) (State, error) {
	raw := []byte(v)
	if decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(v, "=")); err == nil {
		raw = decoded
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		raw = []byte("{}")
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}

	var s State
	switch id := fields["user_id"].(type) {
	case string:
		s.UserID = id
	case float64:
		if id == math.Trunc(id) {
			s.UserID = strconv.FormatInt(int64(id), 10)
		} else {
			s.UserID = strconv.FormatFloat(id, 'f', -1, 64)
		}
	}
	if p, ok := fields["prompt"].(string); ok {
		s.Prompt = p
	}
	return s, nil
}
