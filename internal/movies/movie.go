// Package movies maps the sample_mflix movie documents used as the demo
// corpus.
package movies

import (
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Movie is the subset of a sample_mflix document the ingester uses.
// The year field is inconsistently typed across documents (int32, int64,
// double, or strings like "2000è"), so it is kept raw and parsed at the
// point of use.
type Movie struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Plot      string             `bson:"plot"`
	FullPlot  string             `bson:"fullplot"`
	Genres    []string           `bson:"genres"`
	Cast      []string           `bson:"cast"`
	Directors []string           `bson:"directors"`
	Rated     string             `bson:"rated"`
	Runtime   int32              `bson:"runtime"`
	Year      bson.RawValue      `bson:"year"`
}

// YearKind tags the parsed variant of a movie year.
type YearKind int

const (
	YearAbsent YearKind = iota
	YearInt
	YearString
)

// Year is the tagged variant (string | integer | absent) for the mflix
// year field. Never an untyped blob; one of the kinds always holds.
type Year struct {
	Kind YearKind
	Int  int
	Str  string
}

// ParseYear resolves a raw year value into its variant.
func ParseYear(rv bson.RawValue) Year {
	switch rv.Type {
	case bsontype.Int32:
		return Year{Kind: YearInt, Int: int(rv.Int32())}
	case bsontype.Int64:
		return Year{Kind: YearInt, Int: int(rv.Int64())}
	case bsontype.Double:
		return Year{Kind: YearInt, Int: int(rv.Double())}
	case bsontype.String:
		s := rv.StringValue()
		if n, err := strconv.Atoi(s); err == nil {
			return Year{Kind: YearInt, Int: n}
		}
		return Year{Kind: YearString, Str: s}
	default:
		return Year{Kind: YearAbsent}
	}
}

// String renders the year for display and metadata. Absent years render
// empty.
func (y Year) String() string {
	switch y.Kind {
	case YearInt:
		return strconv.Itoa(y.Int)
	case YearString:
		return y.Str
	default:
		return ""
	}
}

// ParsedYear parses the movie's raw year field.
func (m Movie) ParsedYear() Year {
	return ParseYear(m.Year)
}
