package geo

import (
	"math"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/lanceiro/radar-cli/internal/model"
)

// Attribute columns vary by mesh vintage; the first present name wins.
var (
	codeFields  = []string{"cd_mun", "cd_geocmu"}
	nameFields  = []string{"nm_mun", "nm_municip"}
	stateFields = []string{"sigla_uf", "sigla", "uf"}
)

// parseShapefile reads one IBGE municipality mesh. Point meshes map each
// record to its coordinates; boundary meshes use the polygon area centroid.
// Records without a code or a usable shape are skipped. fallbackState fills
// the UF column for vintages that omit it.
func parseShapefile(shpPath, fallbackState string) ([]model.Municipality, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	codeIdx := firstField(fieldIdx, codeFields)
	nameIdx := firstField(fieldIdx, nameFields)
	stateIdx := firstField(fieldIdx, stateFields)
	if codeIdx < 0 || nameIdx < 0 {
		return nil, eris.Errorf("%s has no municipality code/name fields", filepath.Base(shpPath))
	}

	var out []model.Municipality
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		code := attr(reader, codeIdx)
		if code == "" {
			skipped++
			continue
		}

		lon, lat, ok := shapeLabel(shape)
		if !ok {
			skipped++
			continue
		}
		geomWKB, encErr := pointWKB(lon, lat)
		if encErr != nil {
			skipped++
			continue
		}

		state := model.StateUnknown
		if stateIdx >= 0 {
			state = model.NormalizeState(attr(reader, stateIdx))
		}
		if state == model.StateUnknown && fallbackState != "" {
			state = model.NormalizeState(fallbackState)
		}

		out = append(out, model.Municipality{
			IBGECode:  code,
			Name:      attr(reader, nameIdx),
			StateCode: state,
			Lat:       lat,
			Lon:       lon,
			Geom:      geomWKB,
		})
	}

	if skipped > 0 {
		zap.L().Debug("geo: skipped shapefile records",
			zap.String("file", filepath.Base(shpPath)),
			zap.Int("skipped", skipped),
		)
	}

	return out, nil
}

// firstField returns the index of the first name present in the field map.
func firstField(fieldIdx map[string]int, names []string) int {
	for _, name := range names {
		if i, ok := fieldIdx[name]; ok {
			return i
		}
	}
	return -1
}

// attr returns a trimmed attribute value. Older meshes ship latin-1 DBF
// files; bytes outside UTF-8 are re-decoded so values stay valid text.
func attr(r *shp.Reader, idx int) string {
	v := strings.TrimSpace(strings.TrimRight(r.Attribute(idx), "\x00"))
	if utf8.ValidString(v) {
		return v
	}
	runes := make([]rune, 0, len(v))
	for _, b := range []byte(v) {
		runes = append(runes, rune(b))
	}
	return string(runes)
}

// shapeLabel reduces a shape to the label point stored for its municipality.
// Returns ok=false for nil, empty, or unsupported shapes.
func shapeLabel(shape shp.Shape) (lon, lat float64, ok bool) {
	switch s := shape.(type) {
	case *shp.Point:
		return s.X, s.Y, true

	case *shp.Polygon:
		polys := partPolygons(s)
		if len(polys) == 0 {
			return 0, 0, false
		}
		c := xy.PolygonsCentroid(polys[0], polys[1:]...)
		if len(c) < 2 || math.IsNaN(c[0]) || math.IsNaN(c[1]) ||
			math.IsInf(c[0], 0) || math.IsInf(c[1], 0) {
			return 0, 0, false
		}
		return c[0], c[1], true

	default:
		return 0, 0, false
	}
}

// partPolygons converts each ring of a shapefile polygon into its own
// geom.Polygon for the centroid calculation.
func partPolygons(p *shp.Polygon) []*geom.Polygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	polys := make([]*geom.Polygon, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) < 6 {
			continue
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("geo: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		polys = append(polys, poly)
	}

	return polys
}

// pointWKB encodes a WGS84 label point as EWKB with SRID 4326.
func pointWKB(lon, lat float64) ([]byte, error) {
	g := geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(4326)
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "encode label point")
	}
	return data, nil
}
