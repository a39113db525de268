package tools

import (
	"context"
	"fmt"
)

const (
	DirectionsToolName        = "get_directions"
	DirectionsToolDescription = "Get directions from an origin to a destination."
)

type DirectionsInput struct {
	Origin      string `json:"origin" jsonschema:"description=Where the trip starts"`
	Destination string `json:"destination" jsonschema:"description=Where the trip ends"`
}

// GetDirections is a stand-in for a real directions lookup. It never fails.
func GetDirections(origin, destination string) string {
	return fmt.Sprintf("Directions from %s to %s: Head north, then east. You have arrived.", origin, destination)
}

// DirectionsTool exposes GetDirections with the {origin, destination} schema.
func DirectionsTool() Tool {
	return MustNewFunction(DirectionsToolName, DirectionsToolDescription,
		func(_ context.Context, in DirectionsInput) (string, error) {
			return GetDirections(in.Origin, in.Destination), nil
		})
}
