package evaluation

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// PrintColumns prints the column names of the loaded dataset.
func PrintColumns(w io.Writer, names []string) {
	fmt.Fprintf(w, "Available columns: [%s]\n", strings.Join(names, ", "))
}

// LabelCount is one row of a class distribution.
type LabelCount struct {
	Label string
	Count int
}

// Distribution counts labels, most frequent first. Equal counts are ordered
// by label.
func Distribution(labels []string) []LabelCount {
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	out := make([]LabelCount, 0, len(counts))
	for l, c := range counts {
		out = append(out, LabelCount{Label: l, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// PrintDistribution prints the class counts of labels under title.
func PrintDistribution(w io.Writer, title string, labels []string) {
	dist := Distribution(labels)
	width := 0
	for _, d := range dist {
		if len(d.Label) > width {
			width = len(d.Label)
		}
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, d := range dist {
		fmt.Fprintf(w, "%-*s  %d\n", width, d.Label, d.Count)
	}
}

// ClassSet maps class indices to their names and returns the sorted,
// de-duplicated set.
func ClassSet(classNames []string, indices []int) []string {
	seen := make(map[string]struct{})
	for _, i := range indices {
		name := fmt.Sprint(i)
		if i >= 0 && i < len(classNames) {
			name = classNames[i]
		}
		seen[name] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// PrintClassSets prints which classes occur in the test labels and in the
// model's predictions.
func PrintClassSets(w io.Writer, name string, actual, predicted []string) {
	fmt.Fprintf(w, "\n%s:\n", name)
	fmt.Fprintf(w, "Actual classes: {%s}\n", strings.Join(actual, ", "))
	fmt.Fprintf(w, "Predicted classes: {%s}\n", strings.Join(predicted, ", "))
}

// PrintResults prints every metrics record. Rates are shown as percentages;
// MCC is a raw coefficient and ROC AUC may be N/A.
func PrintResults(w io.Writer, results []Result) {
	for _, r := range results {
		fmt.Fprintf(w, "\n%s results:\n", r.Name)
		fmt.Fprintf(w, "Accuracy: %.5f%%\n", r.Accuracy*100)
		fmt.Fprintf(w, "Precision: %.5f%%\n", r.Precision*100)
		fmt.Fprintf(w, "Recall: %.5f%%\n", r.Recall*100)
		fmt.Fprintf(w, "F1 Score: %.5f%%\n", r.F1*100)
		fmt.Fprintf(w, "Balanced Accuracy: %.5f%%\n", r.BalancedAccuracy*100)
		fmt.Fprintf(w, "MCC: %.5f\n", r.MCC)
		fmt.Fprintf(w, "ROC AUC: %s\n", r.ROCAUC)
	}
}

// FindResult returns the record of the named model.
func FindResult(results []Result, name string) (Result, bool) {
	for _, r := range results {
		if r.Name == name {
			return r, true
		}
	}
	return Result{}, false
}
