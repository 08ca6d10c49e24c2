// engine/travel.go
package engine

import (
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"fieldsched/config"
	"fieldsched/models"
)

const earthRadiusKm = 6371.0

// haversineKm is the great-circle distance between two coordinates.
func haversineKm(a, b models.Address) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// travelMinutes estimates drive time at the configured average road speed.
// No live traffic or routing service is consulted.
func travelMinutes(km float64) float64 {
	speed := config.AvgSpeedKmh
	if speed <= 0 {
		speed = 40
	}
	return km / speed * 60
}

// travelOrigin is where the member departs from for a job starting at
// startMins on the given day: the site of their latest earlier job that day,
// or their home base when this is the first job of the day.
func travelOrigin(snap *Snapshot, member models.TeamMember, dateKey string, startMins int) models.Address {
	origin := member.HomeBase
	for _, a := range snap.ActiveAssignmentsFor(member.ID, dateKey) {
		s := clockMinutes(a.StartTime)
		if s < 0 || s >= startMins {
			continue
		}
		if inst, ok := snap.Installation(a.InstallationID); ok {
			origin = inst.Address
		}
	}
	return origin
}

// travelKmTo computes the distance the member would cover to reach the
// installation, using travelOrigin rules.
func travelKmTo(snap *Snapshot, member models.TeamMember, inst models.Installation) float64 {
	start := clockMinutes(inst.StartTime)
	if start < 0 {
		start = 0
	}
	origin := travelOrigin(snap, member, models.DateKey(inst.ScheduledDate), start)
	return haversineKm(origin, inst.Address)
}

// addressOf resolves an assignment's site coordinates, zero Address if the
// installation is unknown.
func addressOf(snap *Snapshot, installationID primitive.ObjectID) models.Address {
	if inst, ok := snap.Installation(installationID); ok {
		return inst.Address
	}
	return models.Address{}
}
