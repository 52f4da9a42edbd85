package textutil

import (
	"reflect"
	"testing"
)

func TestWordsSplitsOnAnyWhitespace(t *testing.T) {
	got := Words("The  storm\nbroke,\tsuddenly.")
	want := []string{"The", "storm", "broke,", "suddenly."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Words = %v, want %v", got, want)
	}
}

func TestWordsEmptyText(t *testing.T) {
	if got := Words("   \n\t "); len(got) != 0 {
		t.Fatalf("expected no words, got %v", got)
	}
}

func TestCleanWord(t *testing.T) {
	cases := map[string]string{
		`"Thunder!"`: "thunder",
		"(door)":     "door",
		"it's":       "it's",
		"END.":       "end",
	}
	for in, want := range cases {
		if got := CleanWord(in); got != want {
			t.Errorf("CleanWord(%q) = %q, want %q", in, got, want)
		}
	}
}
