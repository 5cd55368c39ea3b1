package planner

import (
	"math"
	"strings"
)

const (
	MinTargetCalories = 1400
	MaxTargetCalories = 3000

	defaultActivityFactor = 1.2
	weightLossAdjustment  = -300
	muscleGainAdjustment  = 250
)

var activityFactors = map[string]float64{
	"sedentary":         1.2,
	"lightly-active":    1.375,
	"moderately-active": 1.55,
	"very-active":       1.725,
}

// Metrics are derived from a Profile and recomputed whenever it changes.
type Metrics struct {
	BMI            float64 `json:"bmi"`
	TargetCalories int     `json:"target_calories"`
}

func ComputeMetrics(p Profile) Metrics {
	weight := float64(p.WeightKg)
	height := float64(p.HeightCm)
	return Metrics{
		BMI:            ComputeBMI(weight, height),
		TargetCalories: EstimateCalories(p.Age, p.Gender, weight, height, p.ActivityLevel, p.Goal),
	}
}

// ComputeBMI returns 0 for a non-positive height.
func ComputeBMI(weightKg, heightCm float64) float64 {
	if heightCm <= 0 {
		return 0
	}
	heightM := heightCm / 100
	return weightKg / (heightM * heightM)
}

// EstimateCalories uses Mifflin-St Jeor. Any gender other than "male"
// (case-insensitive) takes the female constant. The result is clamped to
// [MinTargetCalories, MaxTargetCalories] and truncated.
func EstimateCalories(age int, gender string, weightKg, heightCm float64, activityLevel, goal string) int {
	bmr := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if strings.EqualFold(gender, "male") {
		bmr += 5
	} else {
		bmr -= 161
	}

	factor := defaultActivityFactor
	if option, ok := lookupOption(ActivityLevels, activityLevel); ok {
		factor = activityFactors[option.Value]
	}
	target := bmr * factor

	if option, ok := lookupOption(Goals, goal); ok {
		switch option.Value {
		case "weight-loss":
			target += weightLossAdjustment
		case "muscle-gain":
			target += muscleGainAdjustment
		}
	}

	target = math.Max(MinTargetCalories, math.Min(MaxTargetCalories, target))
	return int(target)
}
