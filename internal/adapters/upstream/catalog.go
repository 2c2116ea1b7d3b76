package upstream

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/normalize"
	"github.com/samirrijal/geogate/internal/core/usecases"
)

// Strategy names, reported as the response source.
const (
	Bag3DWFS     = "3dbag-wfs"
	PDOKBAGWFS   = "pdok-bag-wfs"
	AmsterdamWFS = "ams-wfs"
	AmsterdamAPI = "ams-rest"
	Overpass     = "overpass"
)

// Terrace outlines from the Amsterdam horeca permit register.
const terraceTypeName = "exploitatievergunning-terrasgeometrie"

const amsterdamCRS = "urn:ogc:def:crs:EPSG::4326"

var (
	buildingProfile = normalize.Profile{
		Label:    "Pand",
		NameKeys: []string{"name", "addr:housename"},
		IDKeys:   []string{"identificatie", "fid", "id"},
		Heights:  true,
	}

	terraceWFSProfile = normalize.Profile{
		Label:    "Terras",
		NameKeys: []string{"naam", "bedrijfsnaam", "zaak", "naambedrijf", "zaaknaam", "adres"},
		IDKeys:   []string{"identificatie", "uuid", "id"},
	}

	terraceRESTProfile = normalize.Profile{
		Label:        "Terras",
		NameKeys:     []string{"zaaknaam", "naam", "bedrijfsnaam", "naambedrijf", "adres"},
		IDKeys:       []string{"identificatie", "uuid", "id"},
		GeometryKeys: []string{"terrasgeometrie", "geometrie", "geometry", "geom"},
	}

	terraceOSMProfile = normalize.Profile{
		Label:      "Terras",
		NameKeys:   []string{"name", "brand", "operator"},
		KeepPoints: true,
	}
)

// bag3DRequest queries one 3DBAG level in WGS 84.
func bag3DRequest(endpoint string, q usecases.Query) domain.UpstreamRequest {
	v := url.Values{}
	v.Set("service", "WFS")
	v.Set("version", "2.0.0")
	v.Set("request", "GetFeature")
	v.Set("typeNames", q.Level)
	v.Set("outputFormat", "application/json")
	v.Set("srsName", "EPSG:4326")
	v.Set("bbox", q.BBox.String()+",EPSG:4326")
	return domain.UpstreamRequest{URL: withQuery(endpoint, v)}
}

// pdokRequest queries BAG panden with an RD bbox and WGS 84 output.
func pdokRequest(endpoint string, q usecases.Query) domain.UpstreamRequest {
	v := url.Values{}
	v.Set("service", "WFS")
	v.Set("version", "2.0.0")
	v.Set("request", "GetFeature")
	v.Set("typeNames", "bag:pand")
	v.Set("outputFormat", "application/json")
	v.Set("srsName", "EPSG:4326")
	v.Set("bbox", q.RD.String()+",EPSG:28992")
	v.Set("count", "1000")
	return domain.UpstreamRequest{URL: withQuery(endpoint, v)}
}

// amsterdamWFSRequest queries terrace geometries; requires the API key.
func amsterdamWFSRequest(endpoint string, q usecases.Query) domain.UpstreamRequest {
	v := url.Values{}
	v.Set("SERVICE", "WFS")
	v.Set("REQUEST", "GetFeature")
	v.Set("version", "2.0.0")
	v.Set("typenames", terraceTypeName)
	v.Set("BBOX", q.BBox.String()+","+amsterdamCRS)
	v.Set("outputformat", "geojson")
	v.Set("srsName", amsterdamCRS)
	v.Set("count", "10000")
	return domain.UpstreamRequest{URL: withQuery(endpoint, v), UseAPIKey: true}
}

// amsterdamRESTRequest lists the permit catalog unfiltered; the caller pages through it.
func amsterdamRESTRequest(endpoint string, _ usecases.Query) domain.UpstreamRequest {
	v := url.Values{}
	v.Set("_format", "geojson")
	v.Set("_pageSize", "1000")
	return domain.UpstreamRequest{URL: withQuery(endpoint, v), UseAPIKey: true}
}

// overpassBuildingsRequest selects building ways and multipolygons.
func overpassBuildingsRequest(endpoint string, q usecases.Query) domain.UpstreamRequest {
	box := overpassBBox(q.BBox)
	body := fmt.Sprintf(`[out:json][timeout:25];
(
  way["building"](%[1]s);
  relation["building"]["type"="multipolygon"](%[1]s);
);
out body;
>;
out skel qt;`, box)
	return domain.UpstreamRequest{URL: endpoint, Body: body}
}

// overpassTerracesRequest selects outdoor seating areas and venues with outdoor seating.
func overpassTerracesRequest(endpoint string, q usecases.Query) domain.UpstreamRequest {
	box := overpassBBox(q.BBox)
	body := fmt.Sprintf(`[out:json][timeout:25];
(
  nwr["leisure"="outdoor_seating"](%[1]s);
  node["amenity"~"^(cafe|bar|restaurant|pub)$"]["outdoor_seating"="yes"](%[1]s);
);
out body;
>;
out skel qt;`, box)
	return domain.UpstreamRequest{URL: endpoint, Body: body}
}

// overpassBBox formats south,west,north,east.
func overpassBBox(b domain.BoundingBox) string {
	return domain.BoundingBox{LonMin: b.LatMin, LatMin: b.LonMin, LonMax: b.LatMax, LatMax: b.LonMax}.String()
}

// withQuery merges v into endpoint's existing query string.
func withQuery(endpoint string, v url.Values) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		return endpoint + sep + v.Encode()
	}
	q := u.Query()
	for k, vals := range v {
		q[k] = vals
	}
	u.RawQuery = q.Encode()
	return u.String()
}
