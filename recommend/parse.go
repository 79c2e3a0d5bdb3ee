package recommend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teamflow/rolecall/types"
)

// roleRecommendation is the expected shape of a single-role response.
type roleRecommendation struct {
	RecommendedRole string `json:"recommendedRole"`
	Reason          string `json:"reason"`
}

// parseAssignmentArray reduces an untrusted model response to assignment
// pairs: strip any code-fence wrapping, locate the first well-formed JSON
// array and decode it. Anything else is ErrMalformedResponse.
func parseAssignmentArray(raw string) ([]types.AssignmentPair, error) {
	payload, err := extractJSON(raw, '[', ']')
	if err != nil {
		return nil, err
	}

	var pairs []types.AssignmentPair
	if err := json.Unmarshal([]byte(payload), &pairs); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrMalformedResponse, err)
	}

	// Entries missing either field are the wrong shape, not merely unknown
	// identities; reject the batch so the caller can retry.
	for i, pair := range pairs {
		if pair.Username == "" || pair.AssignedRole == "" {
			return nil, fmt.Errorf("%w: entry %d is missing username or assigned_role", types.ErrMalformedResponse, i)
		}
	}

	return pairs, nil
}

// parseRoleRecommendation reduces an untrusted model response to a single
// role recommendation object.
func parseRoleRecommendation(raw string) (roleRecommendation, error) {
	payload, err := extractJSON(raw, '{', '}')
	if err != nil {
		return roleRecommendation{}, err
	}

	var rec roleRecommendation
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return roleRecommendation{}, fmt.Errorf("%w: %w", types.ErrMalformedResponse, err)
	}

	if rec.RecommendedRole == "" {
		return roleRecommendation{}, fmt.Errorf("%w: missing recommendedRole", types.ErrMalformedResponse)
	}

	return rec, nil
}

// extractJSON returns the first balanced JSON value delimited by open/close
// in the sanitized input. Models habitually wrap JSON in markdown fences or
// surround it with prose; both are tolerated, nested brackets inside string
// literals are honored.
func extractJSON(raw string, open, close byte) (string, error) {
	cleaned := stripCodeFences(raw)

	start := strings.IndexByte(cleaned, open)
	if start < 0 {
		return "", fmt.Errorf("%w: no %q found in response", types.ErrMalformedResponse, string(open))
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(cleaned); i++ {
		ch := cleaned[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}

			continue
		}

		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return cleaned[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("%w: unbalanced %q in response", types.ErrMalformedResponse, string(open))
}

// stripCodeFences removes markdown code-fence lines, keeping the fenced
// content. Handles ``` and ```json openers.
func stripCodeFences(raw string) string {
	if !strings.Contains(raw, "```") {
		return raw
	}

	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}
