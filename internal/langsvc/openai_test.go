package langsvc

import "testing"

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"status":"OK"}`, `{"status":"OK"}`},
		{"plain array", `[{"term":"flu"}]`, `[{"term":"flu"}]`},
		{"fenced", "```json\n{\"status\":\"OK\"}\n```", `{"status":"OK"}`},
		{"fenced no lang", "```\n[1,2]\n```", `[1,2]`},
		{"chatty prefix", `Sure! Here it is: {"status":"OK"}`, `{"status":"OK"}`},
		{"trailing chatter", `{"status":"OK"} Hope that helps!`, `{"status":"OK"}`},
		{"whitespace", "  \n {\"a\":1} \n", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.in); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEnsureContains(t *testing.T) {
	// A case variant is not a hit: the synonym index matches verbatim,
	// so "Corona" must be kept even when "corona" is already listed.
	got := ensureContains([]string{"corona"}, "Corona")
	if len(got) != 2 || got[1] != "Corona" {
		t.Errorf("ensureContains() = %v, want the literal term appended", got)
	}
	got = ensureContains([]string{"COVID-19", "Corona"}, "Corona")
	if len(got) != 2 {
		t.Errorf("ensureContains() duplicated an existing entry: %v", got)
	}
}
