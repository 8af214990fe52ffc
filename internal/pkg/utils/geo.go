package utils

// ValidateCoordinates reports whether a lat/lon pair falls within the valid
// WGS-84 range. Used by the PBF reader to reject corrupt coordinates before
// they reach geometry assembly.
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
