package chunker

import (
	"reflect"
	"testing"
)

func TestExtractKeywords_FrequencyOrder(t *testing.T) {
	text := "solar panels reduce emissions. solar output depends on weather. emissions from solar manufacture are small."
	got := ExtractKeywords(text, 3)

	// "solar" appears three times, "emissions" twice, then first-seen order.
	want := []string{"solar", "emissions", "panels"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractKeywords() = %v, want %v", got, want)
	}
}

func TestExtractKeywords_FiltersShortAndStopWords(t *testing.T) {
	got := ExtractKeywords("the cat sat with them because it was warm today", 10)

	for _, kw := range got {
		if len(kw) <= 3 {
			t.Errorf("keyword %q is too short", kw)
		}
		if _, ok := stopWords[kw]; ok {
			t.Errorf("keyword %q is a stop word", kw)
		}
	}
	want := []string{"warm", "today"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractKeywords() = %v, want %v", got, want)
	}
}

func TestExtractKeywords_Lowercases(t *testing.T) {
	got := ExtractKeywords("Climate CLIMATE Climate", 10)
	want := []string{"climate"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractKeywords() = %v, want %v", got, want)
	}
}

func TestExtractKeywords_LimitApplied(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta theta kappa lambda sigma omega omicron"
	got := ExtractKeywords(text, 0)
	if len(got) != DefaultKeywordLimit {
		t.Errorf("expected %d keywords, got %d", DefaultKeywordLimit, len(got))
	}
}

func TestExtractKeywords_Empty(t *testing.T) {
	if got := ExtractKeywords("", 10); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	if got := ExtractKeywords("a an the i it", 10); got != nil {
		t.Errorf("expected nil for all-short input, got %v", got)
	}
}

func TestExtractKeywords_SplitsOnPunctuation(t *testing.T) {
	got := ExtractKeywords("vaccine-hesitancy, vaccine; hesitancy!", 10)
	want := []string{"vaccine", "hesitancy"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractKeywords() = %v, want %v", got, want)
	}
}
