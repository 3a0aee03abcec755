package service

import "log"

// Urgency and impact come in on a 1 (highest) to 5 (lowest) scale. Anything
// outside that range was produced by a model, not an operator, and is
// coerced before use.
const (
	levelHighest = 1
	levelLowest  = 5
	levelDefault = 3
)

// NormalizeLevel clamps an urgency or impact value into the valid range.
// Values below 1 become 1, above 5 become 5, and a missing value resolves
// to the middle of the scale.
func NormalizeLevel(level *int) int {
	if level == nil {
		log.Printf("priority: missing or unparseable level, using default %d", levelDefault)
		return levelDefault
	}
	v := *level
	if v < levelHighest {
		return levelHighest
	}
	if v > levelLowest {
		return levelLowest
	}
	return v
}

// ResolvePriority maps urgency and impact onto a single 1 to 5 priority
// using the average of the two normalized values.
func ResolvePriority(urgency, impact *int) int {
	avg := float64(NormalizeLevel(urgency)+NormalizeLevel(impact)) / 2

	switch {
	case avg <= 2:
		return 1
	case avg <= 2.5:
		return 2
	case avg <= 3.5:
		return 3
	case avg <= 4.5:
		return 4
	default:
		return 5
	}
}
