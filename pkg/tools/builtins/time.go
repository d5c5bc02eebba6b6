package builtins

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rhuss/plauder/pkg/tools"
)

const timeName = "current_time"

// now is overridden in tests for deterministic output.
var now = time.Now

type timeArgs struct {
	Timezone string `json:"timezone,omitempty" jsonschema_description:"IANA timezone name such as Europe/Berlin, defaults to UTC"`
}

type timeResult struct {
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
}

// CurrentTime returns the current_time tool: the wall clock time as
// RFC3339, in UTC or a requested IANA timezone.
func CurrentTime() tools.Descriptor {
	return tools.Descriptor{
		Name:        timeName,
		Description: "Get the current date and time, optionally in a specific timezone.",
		Parameters:  tools.GenerateSchema[timeArgs](),
		Kind:        tools.KindBuiltin,
		Handler:     runCurrentTime,
	}
}

func runCurrentTime(ctx context.Context, args json.RawMessage) (string, error) {
	var in timeArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("decoding arguments: %w", err)
	}

	loc := time.UTC
	zone := "UTC"
	if in.Timezone != "" {
		l, err := time.LoadLocation(in.Timezone)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q", in.Timezone)
		}
		loc, zone = l, in.Timezone
	}

	out := timeResult{
		Time:     now().In(loc).Format(time.RFC3339),
		Timezone: zone,
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(data), nil
}
