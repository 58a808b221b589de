//nolint:tagliatelle // inventory records use snake_case keys.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ethpandaops/landsat-historic/internal/dispatch"
)

//go:embed scene.schema.json
var sceneSchema []byte

// ErrMalformedRecord is returned for records that fail schema validation.
// It matches dispatch.ErrMalformedRecord under errors.Is.
var ErrMalformedRecord = fmt.Errorf("scene: %w", dispatch.ErrMalformedRecord)

var defaultDecoder = sync.OnceValues(NewDecoder)

// DecodeScene validates and decodes raw with the embedded schema.
func DecodeScene(raw json.RawMessage) (Scene, error) {
	dec, err := defaultDecoder()
	if err != nil {
		return Scene{}, err
	}

	return dec.Decode(raw)
}

// Scene is one entry of the inventory's available_products list.
type Scene struct {
	ProductID        string          `json:"product_id,omitempty"`
	LandsatProductID string          `json:"landsat_product_id,omitempty"`
	DateAcquired     string          `json:"date_acquired,omitempty"`
	ProcessingLevel  json.RawMessage `json:"processing_level,omitempty"`
	SensorID         string          `json:"sensor_id,omitempty"`
	SpacecraftID     string          `json:"spacecraft_id,omitempty"`
	S3Location       string          `json:"s3_location,omitempty"`
}

// ID returns the Landsat product identifier, whichever key carried it.
func (s Scene) ID() string {
	if s.ProductID != "" {
		return s.ProductID
	}

	return s.LandsatProductID
}

// Decoder validates raw records against the scene schema.
type Decoder struct {
	schema *gojsonschema.Schema
}

// NewDecoder compiles the embedded scene schema.
func NewDecoder() (*Decoder, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(sceneSchema))
	if err != nil {
		return nil, fmt.Errorf("compile scene schema: %w", err)
	}

	return &Decoder{schema: schema}, nil
}

// Decode validates raw and decodes it into a Scene. Validation failures
// wrap ErrMalformedRecord.
func (d *Decoder) Decode(raw json.RawMessage) (Scene, error) {
	result, err := d.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return Scene{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			problems = append(problems, verr.String())
		}

		return Scene{}, fmt.Errorf("%w: %s", ErrMalformedRecord, strings.Join(problems, "; "))
	}

	var scene Scene
	if err := json.Unmarshal(raw, &scene); err != nil {
		return Scene{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	return scene, nil
}
