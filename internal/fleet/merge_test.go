package fleet

import (
	"math"
	"reflect"
	"testing"
)

func ids(ss ...string) []Device {
	devices := make([]Device, len(ss))
	for i, s := range ss {
		devices[i] = Device{ID: s}
	}
	return devices
}

func TestMergeAndSort_NumericAware(t *testing.T) {
	got := deviceIDs(MergeAndSort(nil, ids("10", "2", "1")))
	if want := []string{"1", "2", "10"}; !reflect.DeepEqual(got, want) {
		t.Errorf("MergeAndSort() = %v, want %v", got, want)
	}
}

func TestMergeAndSort_Lexicographic(t *testing.T) {
	got := deviceIDs(MergeAndSort(ids("m-b", "m-a"), ids("m-c")))
	if want := []string{"m-a", "m-b", "m-c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("MergeAndSort() = %v, want %v", got, want)
	}
}

func TestMergeAndSort_NewWins(t *testing.T) {
	oldSet := []Device{{ID: "1", Rack: "old"}, {ID: "2", Rack: "old"}}
	newSet := []Device{{ID: "2", Rack: "new"}, {ID: "3", Rack: "new"}}

	merged := MergeAndSort(MergeAndSort(nil, oldSet), newSet)

	if got := deviceIDs(merged); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Fatalf("ids = %v, want [1 2 3]", got)
	}
	racks := []string{merged[0].Rack, merged[1].Rack, merged[2].Rack}
	if want := []string{"old", "new", "new"}; !reflect.DeepEqual(racks, want) {
		t.Errorf("racks = %v, want %v", racks, want)
	}
}

func TestMergeAndSort_MixedKeepsRelativeOrder(t *testing.T) {
	got := deviceIDs(MergeAndSort(nil, ids("abc", "5")))
	if want := []string{"abc", "5"}; !reflect.DeepEqual(got, want) {
		t.Errorf("MergeAndSort() = %v, want %v", got, want)
	}
}

func TestMergeAndSort_Idempotent(t *testing.T) {
	in := ids("3", "1", "2")
	first := MergeAndSort(nil, in)
	second := MergeAndSort(nil, in)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("MergeAndSort() not idempotent: %v vs %v", deviceIDs(first), deviceIDs(second))
	}
	if got := deviceIDs(in); !reflect.DeepEqual(got, []string{"3", "1", "2"}) {
		t.Errorf("input reordered to %v", got)
	}
}

func TestCompareIDs(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1", "2", -1},
		{"10", "9", 1},
		{"1.5", "1.50", 0},
		{"a", "b", -1},
		{"b", "a", 1},
		{"7", "x", 0},
		{"", "1", 0},
	}

	for _, tt := range tests {
		if got := CompareIDs(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareIDs(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	data := ids("1", "2", "3", "4", "5")

	tests := []struct {
		name     string
		pageSize int
		page     int
		want     []string
	}{
		{"first page", 2, 1, []string{"1", "2"}},
		{"last partial page", 2, 3, []string{"5"}},
		{"beyond end", 2, 4, []string{}},
		{"whole set", 10, 1, []string{"1", "2", "3", "4", "5"}},
		{"zero page", 2, 0, []string{}},
		{"negative size", -1, 1, []string{}},
		{"page offset wraps to zero", 8, math.MaxInt/4 + 2, []string{}},
		{"max page", 2, math.MaxInt, []string{}},
		{"max size", math.MaxInt, 1, []string{"1", "2", "3", "4", "5"}},
		{"max size second page", math.MaxInt, 2, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deviceIDs(Paginate(data, tt.pageSize, tt.page))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Paginate(%d, %d) = %v, want %v", tt.pageSize, tt.page, got, tt.want)
			}
		})
	}
}

func TestPageCount(t *testing.T) {
	if got := PageCount(5, 2); got != 3 {
		t.Errorf("PageCount(5, 2) = %d, want 3", got)
	}
	if got := PageCount(0, 2); got != 0 {
		t.Errorf("PageCount(0, 2) = %d, want 0", got)
	}
	if got := PageCount(5, math.MaxInt); got != 1 {
		t.Errorf("PageCount(5, MaxInt) = %d, want 1", got)
	}
}
