package manifest

import "regexp"

// urlPattern accepts absolute http(s) URLs whose host has a dotted final
// label of 1-6 alphanumerics. Ports, IP literals and path/query/fragment
// suffixes pass. Dotless hosts and non-ASCII (IDN) hosts do not. The trailing
// class must include '/' or every URL with a path would be rejected.
var urlPattern = regexp.MustCompile(`^https?://(?:www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b(?:[-a-zA-Z0-9()@:%_+.~#?&=/]*)$`)

// IsValidURL reports whether s is a syntactically plausible absolute HTTP or
// HTTPS URL. It is a shape check only and never touches the network.
func IsValidURL(s string) bool {
	return urlPattern.MatchString(s)
}

func urlField(f Field) bool {
	return f.IsString() && IsValidURL(f.Value)
}
