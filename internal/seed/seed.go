// Package seed supplies the demo dataset: the four Gujarat temples, their
// darshan slot inventory for a day, and a starting batch of alerts.  In
// production these come from real sensor and booking adapters; in demo and
// test mode the caller provides the randomness source so a given seed
// always produces the same world.
package seed

import (
	"fmt"
	"time"

	"github.com/divyaflow/temple-ops/internal/engine"
	"github.com/divyaflow/temple-ops/internal/model"
)

// Temples returns the four managed shrines with an occupancy drawn from
// the given source.  IDs are stable across runs.
func Temples(rng engine.Rand) []model.Temple {
	temples := []model.Temple{
		{
			ID:          "temple-1",
			Name:        "Somnath Temple",
			Description: "First among the twelve Jyotirlinga shrines of Lord Shiva, on the Saurashtra coast.",
			Location:    model.Location{Address: "Veraval, Prabhas Patan", City: "Veraval", State: "Gujarat", Lat: 20.888, Lng: 70.4013},
			Capacity:    model.Capacity{Max: 5000, VIPReserved: 200},
			Timings:     model.Timings{Opening: "06:00", Closing: "21:00"},
			Pricing:     model.Pricing{General: 0, VIP: 500, Senior: 0},
		},
		{
			ID:          "temple-2",
			Name:        "Dwarkadhish Temple",
			Description: "Temple of Lord Krishna at Dwarka, one of the Char Dham pilgrimage sites.",
			Location:    model.Location{Address: "Dwarka", City: "Dwarka", State: "Gujarat", Lat: 22.2442, Lng: 68.9685},
			Capacity:    model.Capacity{Max: 4000, VIPReserved: 150},
			Timings:     model.Timings{Opening: "05:30", Closing: "21:30"},
			Pricing:     model.Pricing{General: 0, VIP: 300, Senior: 0},
		},
		{
			ID:          "temple-3",
			Name:        "Ambaji Temple",
			Description: "One of the 51 Shakti Peethas, in the Arasur hills of north Gujarat.",
			Location:    model.Location{Address: "Ambaji", City: "Banaskantha", State: "Gujarat", Lat: 24.3211, Lng: 72.8428},
			Capacity:    model.Capacity{Max: 6000, VIPReserved: 250},
			Timings:     model.Timings{Opening: "06:00", Closing: "22:00"},
			Pricing:     model.Pricing{General: 0, VIP: 400, Senior: 0},
		},
		{
			ID:          "temple-4",
			Name:        "Pavagadh Kalika Mata Temple",
			Description: "Hilltop temple of Goddess Kali in the Champaner-Pavagadh Archaeological Park.",
			Location:    model.Location{Address: "Pavagadh", City: "Panchmahal", State: "Gujarat", Lat: 22.4851, Lng: 73.5316},
			Capacity:    model.Capacity{Max: 3000, VIPReserved: 100},
			Timings:     model.Timings{Opening: "07:00", Closing: "20:00"},
			Pricing:     model.Pricing{General: 0, VIP: 250, Senior: 0},
		},
	}
	for i := range temples {
		temples[i].OperatingStatus = model.TempleOpen
		temples[i].Capacity.Current = rng.Intn(temples[i].Capacity.Max*3/5 + 1)
	}
	return temples
}

// Slots returns the half-hour darshan slots for one temple on one day,
// 06:00 through 20:30, each with room for 100 devotees and a random
// pre-existing load.
func Slots(rng engine.Rand, templeID string, day time.Time) []model.Slot {
	slots := make([]model.Slot, 0, 30)
	for hour := 6; hour <= 20; hour++ {
		for half := 0; half < 2; half++ {
			startMin := half * 30
			s := model.Slot{
				ID:             fmt.Sprintf("slot-%s-%s-%02d%02d", templeID, day.Format("20060102"), hour, startMin),
				TempleID:       templeID,
				Date:           day,
				StartTime:      fmt.Sprintf("%02d:%02d", hour, startMin),
				EndTime:        fmt.Sprintf("%02d:%02d", hour, startMin+30),
				CapacityMax:    100,
				CapacityBooked: rng.Intn(80),
			}
			slots = append(slots, s)
		}
	}
	return slots
}

// alert templates used for the seeded batch; the live engine has its own.
var seedAlerts = []struct {
	typ   model.AlertType
	title string
	desc  string
}{
	{model.AlertCrowdOverflow, "Crowd density above threshold", "Zone occupancy crossed the configured crowd threshold"},
	{model.AlertSecurityBreach, "Unauthorised entry detected", "Perimeter sensor tripped outside visiting hours"},
	{model.AlertMedicalEmergency, "Medical assistance requested", "Help point activated, medical team required"},
	{model.AlertFire, "Smoke detected", "Smoke sensor triggered near the prasadam kitchen"},
	{model.AlertTechnicalFailure, "Sensor offline", "An IoT sensor stopped reporting"},
	{model.AlertWeather, "Heavy rain warning", "District weather service issued a heavy rain warning"},
}

var seedZones = []string{"Main Hall", "Entrance", "Parking", "VIP Area"}

// Alerts returns n starting alerts spread over the given temples, all
// active, timestamped in the hour before now.
func Alerts(rng engine.Rand, temples []model.Temple, n int, now time.Time) []model.Alert {
	alerts := make([]model.Alert, 0, n)
	for i := 0; i < n; i++ {
		tpl := seedAlerts[rng.Intn(len(seedAlerts))]
		a := model.Alert{
			ID:          fmt.Sprintf("alert-seed-%03d", i+1),
			Type:        tpl.typ,
			Severity:    model.Severities[rng.Intn(len(model.Severities))],
			Title:       tpl.title,
			Description: tpl.desc,
			Location:    model.AlertLocation{Zone: seedZones[rng.Intn(len(seedZones))]},
			Timestamp:   now.Add(-time.Duration(rng.Intn(3600)) * time.Second),
			Status:      model.AlertActive,
			Actions:     []model.AlertAction{},
		}
		if len(temples) > 0 {
			a.Location.TempleID = temples[rng.Intn(len(temples))].ID
		}
		alerts = append(alerts, a)
	}
	return alerts
}
