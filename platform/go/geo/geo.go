// Package geo resolves Australian postcodes to coordinates and computes
// great-circle distances between them.
package geo

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/umahmood/haversine"
)

//go:embed postcodes_au.csv
var postcodeAssets embed.FS

// Coord is a geocoded point.
type Coord struct {
	Lat float64
	Lng float64
}

// Index maps postcodes to coordinates. Immutable after construction.
type Index struct {
	coords map[string]Coord
}

// NewIndex loads the embedded postcode dataset.
func NewIndex() (*Index, error) {
	f, err := postcodeAssets.Open("postcodes_au.csv")
	if err != nil {
		return nil, fmt.Errorf("open postcode dataset: %w", err)
	}
	defer f.Close()
	return newIndexFromCSV(f)
}

func newIndexFromCSV(r io.Reader) (*Index, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read postcode header: %w", err)
	}
	if len(header) < 4 {
		return nil, fmt.Errorf("postcode dataset has %d columns, want at least 4", len(header))
	}

	coords := make(map[string]Coord)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read postcode row: %w", err)
		}

		lat, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("parse latitude for postcode %s: %w", record[0], err)
		}
		lng, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, fmt.Errorf("parse longitude for postcode %s: %w", record[0], err)
		}

		coords[strings.TrimSpace(record[0])] = Coord{Lat: lat, Lng: lng}
	}

	return &Index{coords: coords}, nil
}

// Locate returns the coordinates for a postcode, when known.
func (i *Index) Locate(postcode string) (Coord, bool) {
	c, ok := i.coords[strings.TrimSpace(postcode)]
	return c, ok
}

// DistanceMiles computes the haversine distance between two postcodes.
func (i *Index) DistanceMiles(from, to string) (float64, error) {
	a, ok := i.Locate(from)
	if !ok {
		return 0, fmt.Errorf("unknown postcode %q", from)
	}
	b, ok := i.Locate(to)
	if !ok {
		return 0, fmt.Errorf("unknown postcode %q", to)
	}

	mi, _ := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lng},
		haversine.Coord{Lat: b.Lat, Lon: b.Lng},
	)
	return mi, nil
}

var postcodePattern = regexp.MustCompile(`\b(\d{4})\b`)

// ExtractPostcode pulls the last 4-digit postcode from a free-form address.
// Australian addresses carry the postcode at the end ("12 Example St, Subiaco WA 6008").
func ExtractPostcode(location string) (string, bool) {
	matches := postcodePattern.FindAllString(location, -1)
	if len(matches) == 0 {
		return "", false
	}
	return matches[len(matches)-1], true
}
