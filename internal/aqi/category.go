// Package aqi maps air quality index values to the standard severity scale.
package aqi

// Severity labels, ordered least to most severe.
const (
	CategoryGood          = "Good"
	CategoryModerate      = "Moderate"
	CategorySensitive     = "Unhealthy for Sensitive Groups"
	CategoryUnhealthy     = "Unhealthy"
	CategoryVeryUnhealthy = "Very Unhealthy"
	CategoryHazardous     = "Hazardous"
)

// Categories lists all severity labels in ascending order.
var Categories = []string{
	CategoryGood,
	CategoryModerate,
	CategorySensitive,
	CategoryUnhealthy,
	CategoryVeryUnhealthy,
	CategoryHazardous,
}

// Category returns the severity label for an AQI value. Inclusive upper
// bounds at 50/100/150/200/300; anything above is Hazardous.
func Category(value int) string {
	switch {
	case value <= 50:
		return CategoryGood
	case value <= 100:
		return CategoryModerate
	case value <= 150:
		return CategorySensitive
	case value <= 200:
		return CategoryUnhealthy
	case value <= 300:
		return CategoryVeryUnhealthy
	default:
		return CategoryHazardous
	}
}
