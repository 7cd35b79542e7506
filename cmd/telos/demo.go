// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"time"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/registry"
	"github.com/jllopis/telos/pkg/store"
)

// The demo world is a small weather assistant: two contested weather
// providers, a couple of zero-input extractors, and a terminal responder.

// demoTieBreak is used when the config does not name a priority order.
var demoTieBreak = []string{"fetch-weather-openmeteo", "fetch-weather-noaa"}

func registerDemoTypes(st *store.Store) {
	types := []store.ContextType{
		{Name: "LocationContext", Scope: store.ScopeTurn, Schema: store.Schema{
			Fields:   map[string]store.FieldKind{"city": store.FieldString, "lat": store.FieldFloat, "lon": store.FieldFloat},
			Required: []string{"city"},
		}},
		{Name: "DateContext", Scope: store.ScopeTurn, Schema: store.Schema{
			Fields:   map[string]store.FieldKind{"date": store.FieldString},
			Required: []string{"date"},
		}},
		{Name: "PreferenceContext", Scope: store.ScopeSession, Schema: store.Schema{
			Fields: map[string]store.FieldKind{"units": store.FieldString},
		}},
		{Name: "WeatherContext", Scope: store.ScopeTurn, Schema: store.Schema{
			Fields:   map[string]store.FieldKind{"summary": store.FieldString, "temperature": store.FieldFloat, "units": store.FieldString, "source": store.FieldString},
			Required: []string{"summary"},
		}},
		{Name: "ResponseContext", Scope: store.ScopeTurn, Schema: store.Schema{
			Fields:   map[string]store.FieldKind{"text": store.FieldString},
			Required: []string{"text"},
		}},
	}
	for _, ct := range types {
		// Demo types are static; a conflict is a programming error.
		if err := st.RegisterType(ct); err != nil {
			panic(err)
		}
	}
}

func registerDemoCapabilities(reg *registry.Registry) error {
	caps := []core.Capability{
		core.NewFunc("extract-location", nil, []store.TypeName{"LocationContext"},
			func(_ context.Context, _ map[store.TypeName]store.Context) (core.Result, error) {
				return core.Produce("LocationContext", map[string]any{
					"city": "Oslo", "lat": 59.91, "lon": 10.75,
				}), nil
			}),

		core.NewFunc("current-date", nil, []store.TypeName{"DateContext"},
			func(_ context.Context, _ map[store.TypeName]store.Context) (core.Result, error) {
				return core.Produce("DateContext", map[string]any{
					"date": time.Now().Format("2006-01-02"),
				}), nil
			}),

		core.NewFunc("user-preferences", nil, []store.TypeName{"PreferenceContext"},
			func(_ context.Context, _ map[store.TypeName]store.Context) (core.Result, error) {
				return core.Produce("PreferenceContext", map[string]any{"units": "metric"}), nil
			}),

		weatherProvider("fetch-weather-openmeteo", "open-meteo", 11.5),
		weatherProvider("fetch-weather-noaa", "noaa", 12.0),

		core.NewFunc("respond",
			[]store.TypeName{"WeatherContext"}, []store.TypeName{"ResponseContext"},
			func(_ context.Context, bound map[store.TypeName]store.Context) (core.Result, error) {
				w := bound["WeatherContext"].Payload
				res := core.Produce("ResponseContext", map[string]any{
					"text": "Weather in Oslo: " + w["summary"].(string),
				})
				res.Terminal = true
				return res, nil
			}),
	}
	for _, c := range caps {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func weatherProvider(id, source string, temperature float64) core.Capability {
	return core.NewFunc(id,
		[]store.TypeName{"LocationContext", "DateContext"},
		[]store.TypeName{"WeatherContext"},
		func(_ context.Context, _ map[store.TypeName]store.Context) (core.Result, error) {
			return core.Produce("WeatherContext", map[string]any{
				"summary":     "overcast, light rain",
				"temperature": temperature,
				"units":       "celsius",
				"source":      source,
			}), nil
		},
		core.WithTimeout(10*time.Second),
		core.WithRetries(2),
	)
}
