package service

import (
	"context"
	"math"

	"github.com/fieldserve/dispatch-api/internal/models"
)

const (
	// TravelSafetyMarginMinutes pads every travel estimate between jobs.
	TravelSafetyMarginMinutes = 10
	// MinBufferMinutes is the floor for any inter-job buffer.
	MinBufferMinutes = 10

	missingZipMiles  = 10.0
	samePrefix3Miles = 5.0
	samePrefix2Miles = 15.0
	defaultFarMiles  = 25.0
)

// DistanceResolver supplies real distance data between two locations.
// Implementations may call an external service; the engine always degrades
// to the zip heuristic when the resolver is absent or fails.
type DistanceResolver interface {
	GetDistance(ctx context.Context, fromZip, toZip string) (models.DistanceResult, error)
}

// EstimateDistanceMiles approximates road distance from zip prefixes:
// a shared 3-digit prefix means neighboring areas, a shared 2-digit prefix
// the wider region, anything else a long haul.
func EstimateDistanceMiles(zipA, zipB string) float64 {
	if len(zipA) < 3 || len(zipB) < 3 {
		return missingZipMiles
	}
	if zipA == zipB {
		return samePrefix3Miles
	}
	if zipA[:3] == zipB[:3] {
		return samePrefix3Miles
	}
	if zipA[:2] == zipB[:2] {
		return samePrefix2Miles
	}
	return defaultFarMiles
}

// EstimateTravelTimeMinutes converts miles to minutes using tiered average
// speeds: short hops crawl through streets (~20 mph), mid-range runs average
// ~30 mph, highway distances ~45 mph.
func EstimateTravelTimeMinutes(miles float64) int {
	if miles <= 0 {
		return 0
	}
	switch {
	case miles <= 5:
		return int(math.Ceil(miles * 3))
	case miles <= 15:
		return int(math.Round(miles * 2))
	default:
		return int(math.Round(miles * 1.33))
	}
}

// ResolveDistance returns the real distance when a resolver is available and
// succeeds, otherwise the synchronous zip heuristic.
func ResolveDistance(ctx context.Context, resolver DistanceResolver, fromZip, toZip string) models.DistanceResult {
	if resolver != nil {
		if result, err := resolver.GetDistance(ctx, fromZip, toZip); err == nil && result.DistanceMiles > 0 {
			if result.DurationMinutes <= 0 {
				result.DurationMinutes = EstimateTravelTimeMinutes(result.DistanceMiles)
			}
			return result
		}
	}
	miles := EstimateDistanceMiles(fromZip, toZip)
	return models.DistanceResult{
		DistanceMiles:   miles,
		DurationMinutes: EstimateTravelTimeMinutes(miles),
	}
}

// CalculateEffectiveBuffer returns the idle minutes required between two jobs
// for a technician: never less than the configured buffer, and never less
// than the estimated travel time plus the safety margin.
func CalculateEffectiveBuffer(jobA, jobB models.Job, tech models.Technician) int {
	buffer := tech.BufferMinutes
	if buffer < MinBufferMinutes {
		buffer = MinBufferMinutes
	}
	travel := EstimateTravelTimeMinutes(EstimateDistanceMiles(jobA.Zip, jobB.Zip))
	if required := travel + TravelSafetyMarginMinutes; required > buffer {
		return required
	}
	return buffer
}

// CheckTravelFeasibility orders the two jobs chronologically and reports
// whether the gap between the first job's end and the second job's start
// covers estimated travel plus the safety margin. Jobs without a start time
// are treated as feasible since no ordering exists to violate.
func CheckTravelFeasibility(jobA, jobB models.Job, tech models.Technician) bool {
	startA, okA := jobStartMinutes(jobA)
	startB, okB := jobStartMinutes(jobB)
	if !okA || !okB {
		return true
	}
	first, second := jobA, jobB
	firstStart := startA
	secondStart := startB
	if startB < startA {
		first, second = jobB, jobA
		firstStart, secondStart = startB, startA
	}
	firstEnd := firstStart + jobDurationOrDefault(first)
	gap := secondStart - firstEnd
	travel := EstimateTravelTimeMinutes(EstimateDistanceMiles(first.Zip, second.Zip))
	return gap >= travel+TravelSafetyMarginMinutes
}

// jobStartMinutes resolves a job's start as minutes since midnight.
func jobStartMinutes(job models.Job) (int, bool) {
	if job.StartTime == nil {
		return 0, false
	}
	return clockToMinutes(*job.StartTime)
}

// jobDurationOrDefault returns the job's sanitized duration.
func jobDurationOrDefault(job models.Job) int {
	return SanitizeJobDuration(job.DurationMinutes).Sanitized
}
