package service

import (
	"context"
	"math"

	"github.com/fieldserve/dispatch-api/internal/models"
)

// milesPerDegree approximates surface distance for the nearest-neighbor
// heuristic; route-grade precision comes from the external optimizer.
const milesPerDegree = 69.0

// RouteStart anchors a route at the technician's first position of the day.
type RouteStart struct {
	Lat float64
	Lng float64
	Zip string
}

// RouteOptimizer supplies real-distance route ordering.
type RouteOptimizer interface {
	OptimizeRoute(ctx context.Context, jobs []models.Job, start RouteStart) (models.RoutePlan, error)
}

// SuggestRouteOrder orders a day's jobs with a nearest-neighbor walk over
// straight-line distance from a moving pointer that begins at the home base.
// Jobs without coordinates keep their original order at the end of the route
// rather than failing the whole plan.
func SuggestRouteOrder(jobs []models.Job, start RouteStart) models.RoutePlan {
	plan := models.RoutePlan{OrderedJobIDs: []string{}}
	if len(jobs) == 0 {
		return plan
	}

	var located, unlocated []models.Job
	for _, job := range jobs {
		if job.Lat != nil && job.Lng != nil {
			located = append(located, job)
		} else {
			unlocated = append(unlocated, job)
		}
	}

	currentLat, currentLng := start.Lat, start.Lng
	prevID := ""
	remaining := located
	for len(remaining) > 0 {
		bestIdx := 0
		bestDist := euclideanMiles(currentLat, currentLng, *remaining[0].Lat, *remaining[0].Lng)
		for i := 1; i < len(remaining); i++ {
			d := euclideanMiles(currentLat, currentLng, *remaining[i].Lat, *remaining[i].Lng)
			if d < bestDist {
				bestIdx = i
				bestDist = d
			}
		}
		chosen := remaining[bestIdx]
		plan.OrderedJobIDs = append(plan.OrderedJobIDs, chosen.ID)
		plan.TotalDistance += bestDist
		travel := EstimateTravelTimeMinutes(bestDist)
		plan.TotalDuration += travel
		plan.Legs = append(plan.Legs, models.RouteLeg{
			FromJobID:       prevID,
			ToJobID:         chosen.ID,
			DistanceMiles:   roundMiles(bestDist),
			DurationMinutes: travel,
		})
		currentLat, currentLng = *chosen.Lat, *chosen.Lng
		prevID = chosen.ID
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	for _, job := range unlocated {
		plan.OrderedJobIDs = append(plan.OrderedJobIDs, job.ID)
	}
	plan.TotalDistance = roundMiles(plan.TotalDistance)
	return plan
}

// SuggestRouteOrderAsync prefers the real-distance optimizer and falls back
// to the synchronous heuristic on failure, flagging the degradation.
func SuggestRouteOrderAsync(ctx context.Context, optimizer RouteOptimizer, jobs []models.Job, start RouteStart) models.RoutePlan {
	if len(jobs) <= 1 {
		plan := models.RoutePlan{OrderedJobIDs: []string{}}
		for _, job := range jobs {
			plan.OrderedJobIDs = append(plan.OrderedJobIDs, job.ID)
		}
		return plan
	}
	if optimizer != nil {
		if plan, err := optimizer.OptimizeRoute(ctx, jobs, start); err == nil && len(plan.OrderedJobIDs) == len(jobs) {
			return plan
		}
	}
	plan := SuggestRouteOrder(jobs, start)
	plan.Fallback = true
	return plan
}

func euclideanMiles(latA, lngA, latB, lngB float64) float64 {
	dLat := (latA - latB) * milesPerDegree
	dLng := (lngA - lngB) * milesPerDegree
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

func roundMiles(miles float64) float64 {
	return math.Round(miles*10) / 10
}
