package worker

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/draftline/content-cli/internal/model"
)

// noneAnswer is the sanctioned no-match response the classification prompts
// ask for.
const noneAnswer = "none"

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeLabel folds a label name or model answer for comparison: lowercase,
// diacritics stripped, everything but letters and digits removed. "Story-Telling!!"
// and "storytelling" normalize identically.
func NormalizeLabel(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LabelIndex matches free-text model answers to known labels by normalized
// name. Built fresh each invocation because labels are operator-editable data.
type LabelIndex struct {
	labels []model.Label
	byNorm map[string]model.Label
}

// NewLabelIndex builds an index over the label set. On a normalization
// collision the first label wins.
func NewLabelIndex(labels []model.Label) *LabelIndex {
	idx := &LabelIndex{labels: labels, byNorm: make(map[string]model.Label, len(labels))}
	for _, l := range labels {
		key := NormalizeLabel(l.Name)
		if _, exists := idx.byNorm[key]; !exists {
			idx.byNorm[key] = l
		}
	}
	return idx
}

// Empty reports whether the index holds no labels.
func (idx *LabelIndex) Empty() bool {
	return len(idx.labels) == 0
}

// Names returns the label names in index order, for prompt construction.
func (idx *LabelIndex) Names() []string {
	names := make([]string, len(idx.labels))
	for i, l := range idx.labels {
		names[i] = l.Name
	}
	return names
}

// Match resolves an answer to a label. The second return distinguishes the
// sanctioned "none" answer (nil, true) from an unmappable answer (nil, false).
func (idx *LabelIndex) Match(answer string) (*model.Label, bool) {
	key := NormalizeLabel(answer)
	if key == "" || key == noneAnswer {
		return nil, true
	}
	if l, ok := idx.byNorm[key]; ok {
		return &l, true
	}
	return nil, false
}
