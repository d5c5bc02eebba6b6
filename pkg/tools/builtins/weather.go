package builtins

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/rhuss/plauder/pkg/tools"
)

const weatherName = "get_weather"

// weatherConditions is the fixed pool of mock conditions; the location
// hash picks one, so the same place always reports the same weather.
var weatherConditions = []string{
	"sunny",
	"partly cloudy",
	"overcast",
	"light rain",
	"thunderstorms",
	"snow",
	"fog",
	"windy",
}

type weatherArgs struct {
	Location string `json:"location" jsonschema_description:"City or place name"`
	Unit     string `json:"unit,omitempty" jsonschema:"enum=celsius,enum=fahrenheit" jsonschema_description:"Temperature unit, defaults to celsius"`
}

type weatherResult struct {
	Location    string `json:"location"`
	Temperature int    `json:"temperature"`
	Unit        string `json:"unit"`
	Conditions  string `json:"conditions"`
}

// Weather returns the get_weather tool. It is a deterministic mock:
// conditions and temperature are derived from the location name, no
// network involved. Useful for demos against the mock backend.
func Weather() tools.Descriptor {
	return tools.Descriptor{
		Name:        weatherName,
		Description: "Get the current weather for a location.",
		Parameters:  tools.GenerateSchema[weatherArgs](),
		Kind:        tools.KindBuiltin,
		Handler:     runWeather,
	}
}

func runWeather(ctx context.Context, args json.RawMessage) (string, error) {
	var in weatherArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("decoding arguments: %w", err)
	}
	if strings.TrimSpace(in.Location) == "" {
		return "", fmt.Errorf("location is required")
	}

	unit := in.Unit
	if unit == "" {
		unit = "celsius"
	}
	if unit != "celsius" && unit != "fahrenheit" {
		return "", fmt.Errorf("unsupported unit %q", unit)
	}

	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(in.Location))))
	sum := h.Sum32()

	celsius := int(sum%35) - 5 // -5 to 29
	temp := celsius
	if unit == "fahrenheit" {
		temp = celsius*9/5 + 32
	}

	out := weatherResult{
		Location:    in.Location,
		Temperature: temp,
		Unit:        unit,
		Conditions:  weatherConditions[sum%uint32(len(weatherConditions))],
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(data), nil
}
