package filenamify

import "testing"

func TestSafe(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://v.redd.it/abc123", "https___v.redd.it_abc123"},
		{"plain", "plain"},
		{"a b/c?d=e", "a_b_c_d_e"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Safe(tt.in); got != tt.want {
			t.Errorf("Safe(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSafe_Deterministic(t *testing.T) {
	url := "https://www.reddit.com/r/aww/comments/abc/title/"
	if Safe(url) != Safe(url) {
		t.Error("Safe should be deterministic")
	}
}
