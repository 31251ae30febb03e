package model

import "fmt"

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the point is on the globe. Every component that
// receives coordinates from outside calls this before doing anything else.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// GeocodeRequest is the body of POST /location/geocode
type GeocodeRequest struct {
	Address string `json:"address" binding:"required"`
}

// GeocodeResult is a resolved address
type GeocodeResult struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formattedAddress"`
}

// Coords returns the result as a Coordinates value
func (g *GeocodeResult) Coords() Coordinates {
	return Coordinates{Latitude: g.Latitude, Longitude: g.Longitude}
}

// Address is a reverse-geocoded street address
type Address struct {
	Street           *string `json:"street,omitempty"`
	City             *string `json:"city,omitempty"`
	State            *string `json:"state,omitempty"`
	Country          *string `json:"country,omitempty"`
	PostalCode       *string `json:"postalCode,omitempty"`
	FormattedAddress string  `json:"formattedAddress"`
}
