package catalog

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnsupportedProductVariant is returned when a scene's sensor code is
// outside the configured instrument family.
var ErrUnsupportedProductVariant = errors.New("unsupported product variant")

// DefaultLocationBucket is the public USGS Landsat bucket.
const DefaultLocationBucket = "usgs-landsat"

// EnricherConfig holds enrichment settings.
type EnricherConfig struct {
	// ExpectedSensors lists accepted sensor codes, e.g. "C" for OLI/TIRS.
	ExpectedSensors []string
	LocationBucket  string
}

// Granule is a scene ready to publish.
type Granule struct {
	ProductID string
	Location  string
}

// Enricher derives storage locations for scenes.
type Enricher struct {
	cfg EnricherConfig
}

// NewEnricher creates an Enricher.
func NewEnricher(cfg EnricherConfig) *Enricher {
	if cfg.LocationBucket == "" {
		cfg.LocationBucket = DefaultLocationBucket
	}

	if len(cfg.ExpectedSensors) == 0 {
		cfg.ExpectedSensors = []string{"C"}
	}

	return &Enricher{cfg: cfg}
}

// Enrich checks the scene's instrument and resolves its location. A
// location already present on the record wins over the derived one.
func (e *Enricher) Enrich(scene Scene) (Granule, error) {
	id, err := ParseProductID(scene.ID())
	if err != nil {
		return Granule{}, err
	}

	if !slices.Contains(e.cfg.ExpectedSensors, id.Sensor) {
		return Granule{}, fmt.Errorf(
			"%w: %s has sensor %q, expected one of %v",
			ErrUnsupportedProductVariant, id.Raw, id.Sensor, e.cfg.ExpectedSensors,
		)
	}

	location := scene.S3Location
	if location == "" {
		location = e.Location(id)
	}

	return Granule{ProductID: id.Raw, Location: location}, nil
}

// Location builds the Collection 2 prefix of id in the configured bucket.
func (e *Enricher) Location(id ProductID) string {
	return fmt.Sprintf(
		"s3://%s/collection%s/%s/standard/%s/%d/%s/%s/%s/",
		e.cfg.LocationBucket,
		id.Collection,
		id.LevelDir(),
		id.SensorDir(),
		id.Acquired.Year(),
		id.Path,
		id.Row,
		id.Raw,
	)
}
