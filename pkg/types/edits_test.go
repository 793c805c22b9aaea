package types

import "testing"

func TestKindMatches(t *testing.T) {
	testCases := []struct {
		kind     string
		only     []string
		expected bool
	}{
		{CodeActionKindRefactorExtract, nil, true},
		{CodeActionKindRefactorExtract, []string{"refactor"}, true},
		{CodeActionKindRefactorExtract, []string{"refactor.extract"}, true},
		{CodeActionKindRefactorExtract, []string{"quickfix", "refactor.extract"}, true},
		{CodeActionKindRefactorExtract, []string{"refactor.extract.variable"}, false},
		{CodeActionKindRefactorExtract, []string{"refactor.ex"}, false},
		{CodeActionKindRefactorExtract, []string{"source"}, false},
	}

	for _, tc := range testCases {
		if got := KindMatches(tc.kind, tc.only); got != tc.expected {
			t.Errorf("KindMatches(%q, %v) = %v, expected %v", tc.kind, tc.only, got, tc.expected)
		}
	}
}

func TestSelection_Empty(t *testing.T) {
	if !(Selection{Start: 4, End: 4}).Empty() {
		t.Error("caret selection should be empty")
	}
	if (Selection{Start: 4, End: 5}).Empty() {
		t.Error("range selection should not be empty")
	}
}
