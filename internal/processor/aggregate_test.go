package processor

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestAggregateRendersCounts(t *testing.T) {
	ts := NewTableSet("tissue")
	table := ts.Field("tissue")
	table.Add("liver")
	table.Add("liver")
	table.Add("skin")

	summary := Aggregate(ts, DefaultAggregateOptions())
	got, ok := summary.Get("tissue")
	if !ok {
		t.Fatal("tissue should be present in the summary")
	}
	if want := "liver(N=2)|skin(N=1)"; got != want {
		t.Errorf("tissue = %q, want %q", got, want)
	}
}

func TestAggregateIdentifierFormat(t *testing.T) {
	ts := NewTableSet(FieldSRPID, FieldTitle)
	ts.Field(FieldSRPID).Add("SRP000001")
	ts.Field(FieldTitle).Add("A")
	ts.Field(FieldTitle).Add("B")
	ts.Field(FieldTitle).Add("A")

	summary := Aggregate(ts, DefaultAggregateOptions())
	if got, _ := summary.Get(FieldSRPID); got != "SRP000001" {
		t.Errorf("SRP_ID = %q, want SRP000001", got)
	}
	if got, _ := summary.Get(FieldTitle); got != "A|B" {
		t.Errorf("title = %q, want A|B", got)
	}
}

// TestAggregateIdentifiersNeverSuppressed runs an identifier field and a
// regular field through the same high-cardinality shape; only the regular
// field may be dropped.
func TestAggregateIdentifiersNeverSuppressed(t *testing.T) {
	ts := NewTableSet(FieldTitle, "tissue")
	for i := 0; i < 50; i++ {
		ts.Field(FieldTitle).Add(fmt.Sprintf("sample %d", i))
		ts.Field("tissue").Add(fmt.Sprintf("tissue %d", i))
	}

	summary := Aggregate(ts, DefaultAggregateOptions())
	title, ok := summary.Get(FieldTitle)
	if !ok {
		t.Fatal("title must survive aggregation regardless of cardinality")
	}
	if n := len(strings.Split(title, "|")); n != 50 {
		t.Errorf("title rendered %d values, want 50", n)
	}
	if strings.Contains(title, "(N=") {
		t.Errorf("identifier values must render without counts: %q", title)
	}
	if _, ok := summary.Get("tissue"); ok {
		t.Error("tissue at the same cardinality should be suppressed")
	}
}

func TestAggregateSuppressionBoundary(t *testing.T) {
	opts := DefaultAggregateOptions()

	tests := []struct {
		name     string
		distinct int
		bumpOne  bool // give one value a third occurrence
		want     bool
	}{
		{"above both thresholds suppressed", opts.MinSamples + 1, false, false},
		{"at distinct threshold kept", opts.MinSamples, false, true},
		{"one repeated value rescues the field", opts.MinSamples + 1, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := NewTableSet("source")
			table := ts.Field("source")
			for i := 0; i < tt.distinct; i++ {
				table.Add(fmt.Sprintf("v%d", i))
				table.Add(fmt.Sprintf("v%d", i))
			}
			if tt.bumpOne {
				table.Add("v0")
			}

			_, ok := Aggregate(ts, opts).Get("source")
			if ok != tt.want {
				t.Errorf("field present = %v, want %v (distinct=%d max=%d)",
					ok, tt.want, table.Len(), table.Max())
			}
		})
	}
}

func TestAggregateEmptyFieldOmitted(t *testing.T) {
	ts := NewTableSet(FieldTitle, FieldAbstract)
	ts.Field(FieldTitle).Add("only title")

	summary := Aggregate(ts, DefaultAggregateOptions())
	if _, ok := summary.Get(FieldAbstract); ok {
		t.Error("field with no observations should be omitted")
	}
	if summary.Len() != 1 {
		t.Errorf("summary has %d fields, want 1", summary.Len())
	}
}

func TestAggregateNilTableSet(t *testing.T) {
	summary := Aggregate(nil, DefaultAggregateOptions())
	if summary == nil || summary.Len() != 0 {
		t.Error("nil table set should aggregate to an empty summary")
	}
}

func TestAggregateOrderFollowsRegistration(t *testing.T) {
	ts := NewTableSet("b", "a")
	ts.Field("b").Add("1")
	ts.Field("a").Add("2")
	ts.Field("c").Add("3")

	summary := Aggregate(ts, DefaultAggregateOptions())
	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(summary.Names(), want) {
		t.Errorf("summary order = %v, want %v", summary.Names(), want)
	}
}
