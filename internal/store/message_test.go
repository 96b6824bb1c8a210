package store

import (
	"testing"

	"github.com/E011011101001/HEAL-backend/internal/models"
)

func uintPtr(v uint) *uint { return &v }

// A doctor reading the translated rendering should see the synonym
// recognised in the translation, not the original-language one.
func TestPreferredSynonymIDPrefersTranslatedSide(t *testing.T) {
	cases := []struct {
		name string
		link models.MessageTermCache
		want *uint
	}{
		{"both sides linked", models.MessageTermCache{OriginalSynonymID: uintPtr(1), TranslatedSynonymID: uintPtr(2)}, uintPtr(2)},
		{"original only", models.MessageTermCache{OriginalSynonymID: uintPtr(1)}, uintPtr(1)},
		{"translated only", models.MessageTermCache{TranslatedSynonymID: uintPtr(2)}, uintPtr(2)},
		{"no synonym recorded", models.MessageTermCache{}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := preferredSynonymID(&tc.link)
			switch {
			case tc.want == nil && got != nil:
				t.Errorf("got %d, want nil", *got)
			case tc.want != nil && got == nil:
				t.Errorf("got nil, want %d", *tc.want)
			case tc.want != nil && got != nil && *got != *tc.want:
				t.Errorf("got %d, want %d", *got, *tc.want)
			}
		})
	}
}
