package query

import (
	"fmt"
	"strings"
)

// Default filters select Landsat 8 OLI/TIRS Level-1 Tier 1 products.
const (
	DefaultFrom             = "S3Object[*].available_products[*]"
	DefaultDateField        = "date_acquired"
	DefaultAcquiredPattern  = "y/MM/dd"
	DefaultWindowPattern    = "y-MM-dd HH:mm:ss"
	DefaultProcessingLevel  = "1"
	DefaultSensorID         = "OLI_TIRS"
	DefaultSpacecraftID     = "LANDSAT_8"
	DefaultProductIDPattern = "%_T1"
)

// Filters describes the SQL run against the inventory document.
type Filters struct {
	From      string
	DateField string
	// AcquiredPattern is the TO_TIMESTAMP pattern of the record's date field.
	AcquiredPattern string
	// WindowPattern is the TO_TIMESTAMP pattern of the window bounds. The
	// config layer derives it from the checkpoint layout.
	WindowPattern    string
	ProcessingLevel  string
	SensorID         string
	SpacecraftID     string
	ProductIDPattern string
}

// WithDefaults fills unset fields.
func (f Filters) WithDefaults() Filters {
	if f.From == "" {
		f.From = DefaultFrom
	}

	if f.DateField == "" {
		f.DateField = DefaultDateField
	}

	if f.AcquiredPattern == "" {
		f.AcquiredPattern = DefaultAcquiredPattern
	}

	if f.WindowPattern == "" {
		f.WindowPattern = DefaultWindowPattern
	}

	return f
}

// Expression renders the SELECT statement for the inclusive window
// [start, end]. Empty equality filters are omitted.
func (f Filters) Expression(start, end string) string {
	f = f.WithDefaults()

	var b strings.Builder

	fmt.Fprintf(&b, "SELECT * FROM %s s WHERE TO_TIMESTAMP(s.%s, '%s') BETWEEN TO_TIMESTAMP('%s', '%s') AND TO_TIMESTAMP('%s', '%s')",
		f.From,
		f.DateField,
		quote(f.AcquiredPattern),
		quote(start),
		quote(f.WindowPattern),
		quote(end),
		quote(f.WindowPattern),
	)

	for _, eq := range []struct{ field, value string }{
		{"processing_level", f.ProcessingLevel},
		{"sensor_id", f.SensorID},
		{"spacecraft_id", f.SpacecraftID},
	} {
		if eq.value != "" {
			fmt.Fprintf(&b, " AND s.%s = '%s'", eq.field, quote(eq.value))
		}
	}

	if f.ProductIDPattern != "" {
		fmt.Fprintf(&b, " AND s.product_id LIKE '%s'", quote(f.ProductIDPattern))
	}

	return b.String()
}

func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
