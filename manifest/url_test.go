package manifest

import "testing"

func TestIsValidURL(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"https://example.com", true},
		{"http://example.com", true},
		{"https://www.example.com", true},
		{"https://img.example.co.uk/a/b.png?w=600&h=400#top", true},
		{"https://images.pexels.com/photos/6801648/pexels-photo-6801648.jpeg?auto=compress&cs=tinysrgb&w=600", true},
		{"https://example.com/image.png", true},
		{"https://example.com:8443/frame", true},
		{"http://127.0.0.1", true},
		{"https://example.museum", true},
		{"", false},
		{"example.com", false},
		{"/frames/1", false},
		{"ftp://example.com", false},
		{"https://", false},
		{"http://localhost:3000", false},
		{"https://example.website", false},
		{"https://例え.jp", false},
		{"https://exa mple.com", false},
		{"https://example.com/path with space", false},
	}
	for _, tc := range cases {
		if got := IsValidURL(tc.in); got != tc.want {
			t.Errorf("IsValidURL(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
