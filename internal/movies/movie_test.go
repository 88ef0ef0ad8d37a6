package movies

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

// yearValue builds a bson.RawValue for the year field of a marshaled doc.
func yearValue(t *testing.T, doc bson.D) bson.RawValue {
	t.Helper()
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bson.Raw(raw).Lookup("year")
}

func TestParseYearVariants(t *testing.T) {
	tests := []struct {
		name string
		doc  bson.D
		want Year
	}{
		{"int32", bson.D{{Key: "year", Value: int32(1994)}}, Year{Kind: YearInt, Int: 1994}},
		{"int64", bson.D{{Key: "year", Value: int64(2001)}}, Year{Kind: YearInt, Int: 2001}},
		{"double", bson.D{{Key: "year", Value: float64(1985)}}, Year{Kind: YearInt, Int: 1985}},
		{"numeric string", bson.D{{Key: "year", Value: "1972"}}, Year{Kind: YearInt, Int: 1972}},
		{"dirty string", bson.D{{Key: "year", Value: "2000è"}}, Year{Kind: YearString, Str: "2000è"}},
		{"null", bson.D{{Key: "year", Value: nil}}, Year{Kind: YearAbsent}},
		{"missing", bson.D{{Key: "title", Value: "no year"}}, Year{Kind: YearAbsent}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseYear(yearValue(t, tt.doc))
			if got != tt.want {
				t.Errorf("ParseYear = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestYearString(t *testing.T) {
	tests := []struct {
		year Year
		want string
	}{
		{Year{Kind: YearInt, Int: 1994}, "1994"},
		{Year{Kind: YearString, Str: "2000è"}, "2000è"},
		{Year{Kind: YearAbsent}, ""},
	}
	for _, tt := range tests {
		if got := tt.year.String(); got != tt.want {
			t.Errorf("Year%+v.String() = %q, want %q", tt.year, got, tt.want)
		}
	}
}

func TestMovieDecode(t *testing.T) {
	doc := bson.D{
		{Key: "title", Value: "The Matrix"},
		{Key: "plot", Value: "A hacker learns the truth."},
		{Key: "genres", Value: bson.A{"Action", "Sci-Fi"}},
		{Key: "year", Value: int32(1999)},
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m Movie
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Title != "The Matrix" || m.Plot != "A hacker learns the truth." {
		t.Errorf("decoded movie = %+v", m)
	}
	if y := m.ParsedYear(); y.Kind != YearInt || y.Int != 1999 {
		t.Errorf("ParsedYear = %+v", y)
	}
}
