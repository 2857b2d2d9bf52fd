package obs

import "strings"

// CanonicalPath collapses record identifiers in request paths so metric labels
// stay low-cardinality without a routing library.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) < 3 || parts[0] != "v1" {
		return path
	}
	switch parts[1] {
	case "users":
		if len(parts) == 3 {
			return "/v1/users/:username"
		}
		if len(parts) == 4 && parts[3] == "password" {
			return "/v1/users/:username/password"
		}
		if len(parts) == 4 && parts[3] == "unlock" {
			return "/v1/users/:username/unlock"
		}
	case "invites":
		if len(parts) == 4 && parts[3] == "revoke" {
			return "/v1/invites/:code/revoke"
		}
	case "attendance":
		if len(parts) == 4 && parts[3] == "marks" {
			return "/v1/attendance/:id/marks"
		}
	}
	return path
}
