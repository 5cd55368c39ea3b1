package planner

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

type Plan struct {
	Summary    string    `json:"summary"`
	Disclaimer string    `json:"disclaimer"`
	Days       []DayPlan `json:"days"`
}

type DayPlan struct {
	Day     string        `json:"day"`
	Workout []WorkoutItem `json:"workout"`
	Diet    []MealItem    `json:"diet"`
}

type WorkoutItem struct {
	Name            string   `json:"name"`
	Sets            *int     `json:"sets,omitempty"`
	Reps            string   `json:"reps,omitempty"`
	DurationMinutes *float64 `json:"duration_minutes,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

type MealItem struct {
	Meal           string   `json:"meal"`
	Description    string   `json:"description"`
	ApproxCalories *float64 `json:"approx_calories,omitempty"`
}

// TotalCalories sums the meals that carry a calorie estimate.
func (d DayPlan) TotalCalories() float64 {
	total := 0.0
	for _, meal := range d.Diet {
		if meal.ApproxCalories != nil {
			total += *meal.ApproxCalories
		}
	}
	return total
}

// ExtractJSON returns the text between the first '{' and the last '}'
// inclusive, or the input unchanged when there is no such pair. It is a
// best-effort filter for models that wrap JSON in prose, not a parser.
func ExtractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

// ParsePlan decodes a plan leniently: missing labels get defaults, numbers
// sent as strings are accepted, and values of the wrong kind are dropped.
// Defaults are filled here once so readers never re-check the raw shape.
func ParsePlan(jsonText string) (Plan, error) {
	if !gjson.Valid(jsonText) {
		return Plan{}, &ParseError{Err: errors.New("malformed JSON")}
	}
	root := gjson.Parse(jsonText)
	if !root.IsObject() {
		return Plan{}, &ParseError{Err: fmt.Errorf("expected a JSON object, got %s", root.Type)}
	}

	plan := Plan{
		Summary:    strings.TrimSpace(textValue(root.Get("summary"))),
		Disclaimer: strings.TrimSpace(textValue(root.Get("disclaimer"))),
		Days:       []DayPlan{},
	}

	days := root.Get("days")
	if !days.IsArray() {
		return plan, nil
	}
	for i, day := range days.Array() {
		if !day.IsObject() {
			continue
		}
		plan.Days = append(plan.Days, parseDay(day, i))
	}
	return plan, nil
}

func parseDay(day gjson.Result, index int) DayPlan {
	parsed := DayPlan{
		Day:     orFallback(strings.TrimSpace(textValue(day.Get("day"))), fmt.Sprintf("Day %d", index+1)),
		Workout: []WorkoutItem{},
		Diet:    []MealItem{},
	}

	for _, item := range objects(day.Get("workout")) {
		parsed.Workout = append(parsed.Workout, WorkoutItem{
			Name:            orFallback(strings.TrimSpace(textValue(item.Get("name"))), "Exercise"),
			Sets:            intValue(item.Get("sets")),
			Reps:            strings.TrimSpace(textValue(item.Get("reps"))),
			DurationMinutes: numberValue(item.Get("duration_minutes"), true),
			Notes:           strings.TrimSpace(textValue(item.Get("notes"))),
		})
	}

	for _, item := range objects(day.Get("diet")) {
		parsed.Diet = append(parsed.Diet, MealItem{
			Meal:           orFallback(strings.TrimSpace(textValue(item.Get("meal"))), "Meal"),
			Description:    strings.TrimSpace(textValue(item.Get("description"))),
			ApproxCalories: numberValue(item.Get("approx_calories"), false),
		})
	}
	return parsed
}

func objects(list gjson.Result) []gjson.Result {
	if !list.IsArray() {
		return nil
	}
	result := make([]gjson.Result, 0, len(list.Array()))
	for _, item := range list.Array() {
		if item.IsObject() {
			result = append(result, item)
		}
	}
	return result
}

// textValue renders scalars as text; objects, arrays and null become "".
func textValue(value gjson.Result) string {
	switch value.Type {
	case gjson.String:
		return value.Str
	case gjson.Number, gjson.True, gjson.False:
		return value.Raw
	default:
		return ""
	}
}

// numberValue accepts finite JSON numbers, and numeric strings only when
// allowStrings is set. NaN and infinities, including out-of-range literals
// such as 1e999, are dropped like any other value of the wrong kind.
func numberValue(value gjson.Result, allowStrings bool) *float64 {
	var n float64
	switch value.Type {
	case gjson.Number:
		n = value.Num
	case gjson.String:
		if !allowStrings {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value.Str), 64)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

// intValue keeps only whole numbers that fit in an int32; fractional or
// oversized counts are dropped rather than truncated.
func intValue(value gjson.Result) *int {
	n := numberValue(value, true)
	if n == nil || *n != math.Trunc(*n) || *n > math.MaxInt32 || *n < math.MinInt32 {
		return nil
	}
	i := int(*n)
	return &i
}
