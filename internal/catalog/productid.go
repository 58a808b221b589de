package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidProductID is returned for identifiers that do not follow the
// LXSS_LLLL_PPPRRR_YYYYMMDD_YYYYMMDD_CC_TX convention. Such a record is
// malformed, so it matches ErrMalformedRecord under errors.Is.
var ErrInvalidProductID = fmt.Errorf("%w: invalid product id", ErrMalformedRecord)

const productDateLayout = "20060102"

// ProductID is a parsed Landsat Collection product identifier, e.g.
// LC08_L1TP_218002_20220327_20220329_02_T1.
type ProductID struct {
	Raw        string
	Sensor     string
	Satellite  int
	Level      string
	Path       string
	Row        string
	Acquired   time.Time
	Processed  time.Time
	Collection string
	Category   string
}

// ParseProductID splits id into its components.
func ParseProductID(id string) (ProductID, error) {
	parts := strings.Split(id, "_")
	if len(parts) != 7 {
		return ProductID{}, fmt.Errorf("%w: %q has %d fields", ErrInvalidProductID, id, len(parts))
	}

	mission := parts[0]
	if len(mission) != 4 || mission[0] != 'L' {
		return ProductID{}, fmt.Errorf("%w: %q: bad mission %q", ErrInvalidProductID, id, mission)
	}

	satellite, err := strconv.Atoi(mission[2:])
	if err != nil {
		return ProductID{}, fmt.Errorf("%w: %q: bad satellite: %w", ErrInvalidProductID, id, err)
	}

	pathRow := parts[2]
	if len(pathRow) != 6 {
		return ProductID{}, fmt.Errorf("%w: %q: bad path/row %q", ErrInvalidProductID, id, pathRow)
	}

	acquired, err := time.Parse(productDateLayout, parts[3])
	if err != nil {
		return ProductID{}, fmt.Errorf("%w: %q: bad acquisition date: %w", ErrInvalidProductID, id, err)
	}

	processed, err := time.Parse(productDateLayout, parts[4])
	if err != nil {
		return ProductID{}, fmt.Errorf("%w: %q: bad processing date: %w", ErrInvalidProductID, id, err)
	}

	return ProductID{
		Raw:        id,
		Sensor:     mission[1:2],
		Satellite:  satellite,
		Level:      parts[1],
		Path:       pathRow[:3],
		Row:        pathRow[3:],
		Acquired:   acquired,
		Processed:  processed,
		Collection: parts[5],
		Category:   parts[6],
	}, nil
}

// LevelDir returns the bucket directory for the processing level.
func (p ProductID) LevelDir() string {
	if strings.HasPrefix(p.Level, "L2") {
		return "level-2"
	}

	return "level-1"
}

// SensorDir returns the bucket directory for the instrument.
func (p ProductID) SensorDir() string {
	switch p.Sensor {
	case "C", "O":
		return "oli-tirs"
	case "T":
		if p.Satellite >= 8 {
			return "oli-tirs"
		}

		return "tm"
	case "E":
		return "etm"
	case "M":
		return "mss"
	default:
		return strings.ToLower(p.Sensor)
	}
}
